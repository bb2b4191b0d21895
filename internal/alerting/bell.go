package alerting

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const bellGap = 200 * time.Millisecond

// Bell 在本地终端响铃提示告警。
type Bell struct {
	out    io.Writer
	gap    time.Duration
	logger zerolog.Logger
}

// NewBell rings on stdout.
func NewBell(logger zerolog.Logger) *Bell {
	return &Bell{
		out:    os.Stdout,
		gap:    bellGap,
		logger: logger.With().Str("component", "alert_bell").Logger(),
	}
}

// Ring emits two terminal bells.
func (b *Bell) Ring() {
	if _, err := io.WriteString(b.out, "\a"); err != nil {
		b.logger.Debug().Err(err).Msg("bell write failed")
		return
	}
	time.Sleep(b.gap)
	if _, err := io.WriteString(b.out, "\a"); err != nil {
		b.logger.Debug().Err(err).Msg("bell write failed")
	}
}
