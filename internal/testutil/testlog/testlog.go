package testlog

import (
	"testing"

	"garden-board/internal/common/logging"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Start настраивает логирование для теста и возвращает логгер с именем теста.
func Start(t *testing.T) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	logger := log.Logger.With().Str("test", t.Name()).Logger()
	logger.Debug().Msg("start")
	return logger
}
