package utils

import (
	"go.uber.org/zap"
)

// Logger is replaced by InitLogger at startup. The no-op default keeps
// packages usable from tests without a bootstrap step.
var Logger = zap.NewNop()

func InitLogger() {
	// JSON logs for aggregation (ELK, Datadog)
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	l, err := config.Build()
	if err != nil {
		panic(err)
	}
	Logger = l
}

// UseLogger swaps the package logger, returning a func that restores the old one.
func UseLogger(l *zap.Logger) func() {
	prev := Logger
	Logger = l
	return func() { Logger = prev }
}
