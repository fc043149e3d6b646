package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/94faddy/dz-wrokshop/internal/config"
)

var configFiles []string

func main() {
	root := &cobra.Command{
		Use:   "dzworkshop",
		Short: "Steam Workshop download orchestrator",
	}
	root.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil,
		"configuration file path (repeatable, later files override earlier ones)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if len(configFiles) == 0 {
		if _, err := os.Stat("dzworkshop.toml"); err == nil {
			configFiles = append(configFiles, "dzworkshop.toml")
		}
	}
	return config.LoadFromFiles(configFiles...)
}
