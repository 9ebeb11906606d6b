package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/metanote"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build info",
	Run: func(cmd *cobra.Command, args []string) {
		info := metanote.GetVersionInfo()
		fmt.Printf("metanote %s\n", info.Version)
		fmt.Printf("  commit: %s\n", info.GitCommit)
		fmt.Printf("  built:  %s\n", info.BuildTime)
		fmt.Printf("  go:     %s\n", info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
