package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chpsim/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		fmt.Printf("configuration ok: %d units, %d scenarios\n", len(cfg.Units), len(cfg.Scenarios))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
