package bootstrap

import (
	"fmt"

	"github.com/trader/backend/logger"
)

// Application is what the factory returns. Run blocks until the server shuts
// down or fails.
type Application interface {
	Run(debug bool, host string, port int) error
}

// Factory constructs a fully configured application.
type Factory func() (Application, error)

// Run builds the application with factory and starts its serve loop with the
// given settings. It blocks for the lifetime of the server.
func Run(settings Settings, factory Factory) error {
	app, err := factory()
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	logger.WithFields(logger.Fields{
		"debug": settings.Debug,
		"host":  settings.Host,
		"port":  settings.Port,
	}).Info("starting application")

	if err := app.Run(settings.Debug, settings.Host, settings.Port); err != nil {
		return fmt.Errorf("run application: %w", err)
	}
	return nil
}
