package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/satchel/pkg/cliui"
	"github.com/inkwellhq/satchel/pkg/config"
)

const initLongDesc string = `Write a preset configuration file.

Initializes config.toml in the .satchel/ directory from a named preset.
Presets set the embedding and chat providers together so their models
and dimensions stay consistent.

Examples:
  satchel config init ollama
  satchel config init openai`

const initShortDesc string = "Write a preset configuration file"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <preset>",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runInit(preset, configDir string) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return fmt.Errorf("unknown preset %q\n\nValid presets: %s",
			preset, strings.Join(config.ValidPresetNames(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\n  %s Wrote %s preset to %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(preset),
		cliui.ValueStyle.Render(cfger.GetTarget()),
	)
	return nil
}
