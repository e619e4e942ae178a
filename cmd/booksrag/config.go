package main

import (
	"context"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration with secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		a, err := newApp(context.Background(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		out := struct {
			Env        string `yaml:"env"`
			Collection any    `yaml:"collection_resolution"`
			Params     string `yaml:"retrieval_signature"`
			Config     any    `yaml:"config"`
		}{
			Env:        envName,
			Collection: a.resolver.Sources(),
			Params:     a.rag.Params().Signature(),
			Config:     cfg.Masked(),
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(out)
	},
}
