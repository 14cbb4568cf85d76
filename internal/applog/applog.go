// Package applog constructs the process-wide zap logger, adapted from the
// InitServer bootstrap in the teacher repository's src/server/server.go:
// a development config with stdout output in debug mode, a production
// config otherwise, replacing zap's globals so packages that reach for
// zap.L() also pick it up.
package applog

import "go.uber.org/zap"

// New builds and returns a SugaredLogger appropriate for debug.
func New(debug bool) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stdout"}
		logger, err = cfg.Build()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger.Sugar(), nil
}
