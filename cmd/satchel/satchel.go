// Package satchelcmder
package satchelcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/inkwellhq/satchel/cmd/satchel/config"
	ingestcmder "github.com/inkwellhq/satchel/cmd/satchel/ingest"
	servecmder "github.com/inkwellhq/satchel/cmd/satchel/serve"
	versioncmder "github.com/inkwellhq/satchel/cmd/version"
)

const satchelLongDesc string = `Satchel is a personal document knowledge base with retrieval-augmented chat.

Run services using:
  satchel serve            Run the API server
  satchel ingest <path>    Ingest documents from the command line
  satchel config           Manage persistent configuration`

const satchelShortDesc string = "Satchel - Document Knowledge Base"

func NewSatchelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "satchel",
		Short: satchelShortDesc,
		Long:  satchelLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .satchel/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
