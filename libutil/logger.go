package libutil

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates a named hclog logger. JSON output is enabled with POSTFX_JSON_LOG=1.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv("POSTFX_JSON_LOG") == "1",
		Output:     output,
		TimeFormat: "15:04:05.000",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// LogLevel returns the level from POSTFX_LOG_LEVEL, defaulting to info.
func LogLevel() string {
	level := os.Getenv("POSTFX_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return level
}

// OrNull returns logger or a discarding logger when it is nil.
func OrNull(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}
	return logger
}
