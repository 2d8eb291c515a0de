package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
	"github.com/dd0wney/cluso-gridmap/pkg/ingest"
)

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and that every input file exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := validateInputs(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d sources)\n", configPath, len(cfg.Input.Sources))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Run configuration file")
	return cmd
}

func validateInputs(cfg config.Config) error {
	if err := cfg.ValidateInputs(); err != nil {
		return err
	}

	files := []string{cfg.Input.Boundary, cfg.Input.External}
	for i, src := range cfg.Input.Sources {
		if _, err := ingest.Lookup(src.Profile); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		files = append(files, src.Sites, src.Distribution, src.Substation, src.Circuits, src.Segments, src.Buses)
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("input file: %w", err)
		}
	}
	return nil
}
