package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/trader/backend/app"
	"github.com/trader/backend/bootstrap"
	"github.com/trader/backend/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warning(".env file not found, using environment variables")
	}

	settings, err := bootstrap.LoadSettings(os.LookupEnv)
	if err != nil {
		logger.WithError(err).Fatal("invalid server settings")
	}

	err = bootstrap.Run(settings, func() (bootstrap.Application, error) {
		return app.CreateApp()
	})
	if err != nil {
		logger.WithError(err).Fatal("application exited")
	}
}
