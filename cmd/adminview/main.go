// Command adminview serves the backoffice admin API and exports list pages
// from the command line.
//
// @title       Backoffice Admin API
// @version     1.0
// @description List pages, confirmations and exports for the storefront backoffice.
// @BasePath    /api/v1
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "adminview",
		Short:         "Backoffice list pages over the storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(newServeCmd(), newExportCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("adminview failed")
		os.Exit(1)
	}
}
