package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig selects level, encoding and destination of the service logger.
type LogConfig struct {
	Level       string
	Format      string // "json" or "console"
	Output      io.Writer
	ServiceName string
}

// NewLogger builds a zerolog logger. Unknown levels fall back to info.
func NewLogger(cfg LogConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		ctx = ctx.Str("service", name)
	}
	return ctx.Logger()
}
