// Package logging builds the logr.Logger shared by the command-line tools.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps the CLI switches onto a zap level. logr V(n) logs at zap level
// -n, so debug enables state transitions (V(1)) and verbose adds rendered
// SQL (V(2)).
func Level(debug, verbose bool) zapcore.Level {
	switch {
	case verbose:
		return zapcore.Level(-2)
	case debug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// New returns a console logger under debug and a JSON logger otherwise. The
// returned func flushes buffered entries.
func New(debug, verbose bool) (logr.Logger, func(), error) {
	zl, err := newConfig(debug, verbose).Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

func newConfig(debug, verbose bool) zap.Config {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(Level(debug, verbose))
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		// Every rendered statement is wanted, repeated or not
		cfg.Sampling = nil
	}
	return cfg
}
