// Package logsvc provides the loggers used across the app.
package logsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/rekodi/core"
)

// New returns a console logger, reporting to Rollbar too when a token is configured.
func New(conf *core.Config) (core.Logger, error) {
	console, err := NewConsoleLogger(conf.Debug)
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	if conf.Rollbar.Token == "" || conf.TestMode {
		return console, nil
	}
	rl := NewRollbarLogger(console, conf)
	rl.Enable(true)
	return rl, nil
}
