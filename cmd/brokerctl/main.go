// Package main is the entry point for the broker admin CLI.
package main

import (
	"os"

	"identity-broker/cmd/brokerctl/app"
	"identity-broker/internal/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	if err := app.NewRootCmd().Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
}
