package main

import (
	"github.com/spf13/cobra"

	"conf-compose/pkg/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check nodes and tunnels files without generating anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := loadValidated(config.Current())
			return err
		},
	}
}
