package logger

import (
	"go.uber.org/zap"
)

// NewLogger builds the sugared logger every component reports through.
func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}
