package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/panelnav/panelnav/internal/config"
	"github.com/panelnav/panelnav/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		dir      string
		panelURL string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default panelnav.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Exists(dir) && !force {
				return errors.New("P061").
					WithDetail(config.ConfigFileName + " already exists in " + dir).
					WithSuggestion("Pass --force to overwrite it.")
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.New("P007").Wrap(err)
			}

			cfg := config.New()
			cfg.PanelURL = panelURL
			path := filepath.Join(dir, config.ConfigFileName)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Wrote %s", path)
			info(out, "Set apiKey there or export %s before running panelnav serve.", config.EnvAPIKey)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the file to")
	cmd.Flags().StringVar(&panelURL, "panel-url", "", "Panel base URL")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
