package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/94faddy/dz-wrokshop/internal/config"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("dzworkshop version %s\n", config.GetVersion())
			return nil
		},
	}
}
