package fetcher

import (
	"context"
	"testing"
)

func TestChainlinkMissingConfig(t *testing.T) {
	cl := NewChainlink(ChainlinkOptions{}, noopLogger())
	if _, err := cl.Fetch(context.Background()); err == nil {
		t.Fatal("未配置 RPC 时应报错")
	}

	cl = NewChainlink(ChainlinkOptions{RPCURL: "http://localhost"}, noopLogger())
	if _, err := cl.Fetch(context.Background()); err == nil {
		t.Fatal("缺少喂价合约地址应报错")
	}
}
