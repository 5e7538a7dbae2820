package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - настройка структурированного логирования (zap)
//
// Бот работает без оператора, поэтому все события пишутся структурированно:
// каждый логгер цепочки получает поле chain, по которому фильтруются
// записи конкретной сети в агрегаторе логов.

// InitLogger создаёт и настраивает zap logger
//
// Параметры:
//   - level: debug | info | warn | error
//   - format: json (production) | console (development)
func InitLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info", "":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level: %q", level)
	}

	var cfg zap.Config
	switch strings.ToLower(format) {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// ChainLogger возвращает логгер с тегом сети
// Все записи пайплайна одной цепочки несут одно и то же поле chain
func ChainLogger(base *zap.Logger, chainName string) *zap.Logger {
	return base.With(zap.String("chain", chainName))
}
