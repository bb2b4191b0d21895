package fetcher

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	aggregatorABIJSON = `[{"inputs":[],"name":"latestRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}]`
)

var (
	aggregatorABI abi.ABI
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		panic("failed to parse aggregator ABI: " + err.Error())
	}
	aggregatorABI = parsed
}

// ChainlinkOptions parameterise the on-chain price feed fetcher.
type ChainlinkOptions struct {
	RPCURL      string
	FeedAddress string
	Timeout     time.Duration
}

// Chainlink reads prices from a Chainlink aggregator feed via Ethereum RPC.
type Chainlink struct {
	opts      ChainlinkOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
	decimals  *int32
}

// NewChainlink builds a new Chainlink feed fetcher.
func NewChainlink(opts ChainlinkOptions, logger zerolog.Logger) *Chainlink {
	return &Chainlink{opts: opts, logger: logger.With().Str("component", "chainlink_fetcher").Logger()}
}

// Fetch reads latestRoundData from the configured feed.
func (c *Chainlink) Fetch(ctx context.Context) (Quote, error) {
	if c.opts.RPCURL == "" {
		return Quote{}, errors.New("ethereum rpc url not configured")
	}
	if c.opts.FeedAddress == "" {
		return Quote{}, errors.New("feed contract address not configured")
	}

	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return Quote{}, err
	}

	addr := common.HexToAddress(c.opts.FeedAddress)

	feedDecimals, err := c.feedDecimals(ctx, client, addr)
	if err != nil {
		return Quote{}, err
	}

	payload, err := aggregatorABI.Pack("latestRoundData")
	if err != nil {
		return Quote{}, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return Quote{}, err
	}

	outputs, err := aggregatorABI.Unpack("latestRoundData", res)
	if err != nil {
		return Quote{}, err
	}
	if len(outputs) != 5 {
		return Quote{}, errors.New("unexpected latestRoundData response")
	}

	answer, ok := outputs[1].(*big.Int)
	if !ok {
		return Quote{}, errors.New("failed to decode feed answer")
	}
	if answer.Sign() <= 0 {
		return Quote{}, errors.New("feed answer not positive")
	}

	price := decimal.NewFromBigInt(answer, -feedDecimals)

	ts := time.Now().UTC()
	if updatedAt, ok := outputs[3].(*big.Int); ok && updatedAt.Int64() > 0 {
		ts = time.Unix(updatedAt.Int64(), 0).UTC()
	}

	return Quote{Price: price, Timestamp: ts}, nil
}

func (c *Chainlink) feedDecimals(ctx context.Context, client *ethclient.Client, addr common.Address) (int32, error) {
	c.clientMux.Lock()
	cached := c.decimals
	c.clientMux.Unlock()
	if cached != nil {
		return *cached, nil
	}

	payload, err := aggregatorABI.Pack("decimals")
	if err != nil {
		return 0, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return 0, err
	}

	outputs, err := aggregatorABI.Unpack("decimals", res)
	if err != nil {
		return 0, err
	}
	if len(outputs) != 1 {
		return 0, errors.New("unexpected decimals response")
	}

	raw, ok := outputs[0].(uint8)
	if !ok {
		return 0, errors.New("failed to decode feed decimals")
	}

	value := int32(raw)
	c.clientMux.Lock()
	c.decimals = &value
	c.clientMux.Unlock()
	return value, nil
}

func (c *Chainlink) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

var _ Source = (*Chainlink)(nil)
