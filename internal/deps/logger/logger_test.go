package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"loud":  slog.LevelInfo,
	}

	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", value)
			assert.Equal(t, want, Level())
		})
	}
}
