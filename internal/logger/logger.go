package logger

import (
	"go.uber.org/zap"
)

// New returns a JSON logger in prod and a console logger everywhere else.
func New(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
