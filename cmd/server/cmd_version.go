package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd prints the build-time version info baked in by GoReleaser.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(GetVersion().String())
			return nil
		},
	}
}
