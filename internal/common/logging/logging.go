package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ============================================================
// Logger
// ============================================================

var configureOnce sync.Once

// Init настраивает глобальный zerolog логгер приложения.
func Init(app, level string) zerolog.Logger {
	return InitWriter(os.Stdout, app, level)
}

// InitWriter то же, что Init, но пишет в переданный writer (TUI пишет логи в файл).
func InitWriter(out io.Writer, app, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	if lvl, ok := ParseLevel(level); ok {
		logger = logger.Level(lvl)
	}
	log.Logger = logger
	return logger
}

// ConfigureTests отключает шум в тестах, оставляя LOG_LEVEL для отладки.
func ConfigureTests() {
	configureOnce.Do(func() {
		lvl, ok := ParseLevel(os.Getenv("LOG_LEVEL"))
		if !ok {
			lvl = zerolog.Disabled
		}
		zerolog.SetGlobalLevel(lvl)
	})
}

func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Component возвращает дочерний логгер с полем component.
func Component(parent zerolog.Logger, name string) zerolog.Logger {
	return parent.With().Str("component", name).Logger()
}
