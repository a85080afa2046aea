package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Config selects the log level and output format.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds the root logger of the process.
func New(cfg Config) hclog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            "autosense",
		Level:           ParseLevel(cfg.Level),
		Output:          out,
		JSONFormat:      strings.EqualFold(cfg.Format, "json"),
		IncludeLocation: false,
		TimeFormat:      "2006-01-02T15:04:05.000Z0700",
	})
}

// ParseLevel maps a level name to an hclog level. Unknown names map to Info.
func ParseLevel(level string) hclog.Level {
	parsed := hclog.LevelFromString(strings.TrimSpace(level))
	if parsed == hclog.NoLevel {
		return hclog.Info
	}
	return parsed
}

// StandardLogger adapts logger for APIs that want a *log.Logger, such as
// http.Server.ErrorLog.
func StandardLogger(logger hclog.Logger) *log.Logger {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
}
