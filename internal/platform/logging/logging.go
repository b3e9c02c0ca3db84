package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/ogurasousui/workforce-services/internal/platform/config"
)

// New は設定に従って zerolog.Logger を構築します。
// level が解釈できない場合は info にフォールバックします。
func New(cfg config.LoggingConfig, service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Str("service", service).Logger()
}

// Fallback は設定読み込み前に使う最小構成のロガーを返します。
func Fallback() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
