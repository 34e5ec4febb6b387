package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// New builds the tool logger. The level comes from REDRESS_LOG_LEVEL when
// set, otherwise from the configured level string. Logs go to stderr so
// stdout stays clean for report output.
func New(level string) hclog.Logger {
	return NewWithOutput(level, os.Stderr)
}

func NewWithOutput(level string, out io.Writer) hclog.Logger {
	if env := os.Getenv("REDRESS_LOG_LEVEL"); env != "" {
		level = env
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:        "redress",
		Output:      out,
		Level:       parseLevel(level),
		DisableTime: true,
	})
}

func parseLevel(s string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
