package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonhull/metanote"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>...",
	Short: "Show tags and audio properties",
	Long: `Show the canonical tag fields, technical audio info, cover art summary
and any parse warnings for each file.

Examples:
  metanote inspect song.flac
  metanote inspect ~/Music/incoming/`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		paths, err := expandPaths(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(paths) == 0 {
			fmt.Fprintln(os.Stderr, "no audio files found")
			os.Exit(1)
		}

		exitCode := 0
		for i, path := range paths {
			file, err := metanote.Open(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				exitCode = 1
				continue
			}
			if i > 0 {
				fmt.Println()
			}
			printFile(file)
			_ = file.Close() //nolint:errcheck // Read-only handle
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func printFile(f *metanote.File) {
	fmt.Println(f.Path)
	fmt.Printf("  %s, %s, %s\n", f.Audio, f.Audio.Duration.Round(time.Second), humanSize(f.Size))

	for _, field := range metanote.Fields() {
		value, ok := f.Tags.Get(field)
		if !ok {
			continue
		}
		fmt.Printf("  %-8s %s\n", field, value)
	}

	if f.Cover != nil {
		fmt.Printf("  %-8s %s, %s\n", "cover", f.Cover.MIME, humanSize(int64(len(f.Cover.Data))))
	}

	for _, w := range f.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
