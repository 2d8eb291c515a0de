package main

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-gridmap/pkg/config"
)

const defaultConfigFile = "gridmap.yaml"

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "gridmap",
		Short:         "Service territories and feeder hierarchy for substations",
		Long:          `gridmap builds an exclusive service territory for every substation of one or more distributors and infers which substation feeds which.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal; a malformed one is not.
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before running")

	root.AddCommand(newRunCmd(), newValidateCmd(), newProfilesCmd())
	return root
}

// loadConfig reads the config file and resolves relative input paths
// against the file's directory.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	resolveInputs(&cfg.Input, filepath.Dir(path))
	return cfg, nil
}

func resolveInputs(in *config.InputConfig, base string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	resolve(&in.Boundary)
	resolve(&in.External)
	for i := range in.Sources {
		src := &in.Sources[i]
		for _, p := range []*string{&src.Sites, &src.Distribution, &src.Substation, &src.Circuits, &src.Segments, &src.Buses} {
			resolve(p)
		}
	}
}
