package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simonhull/metanote"
)

var coverExtract string

var coverCmd = &cobra.Command{
	Use:   "cover <path> [flags]",
	Short: "Show or extract embedded cover art",
	Long: `Without flags, report whether the file carries a front cover and what
kind. With --extract, write the image bytes to a file.

Embedding a cover is done through set:
  metanote set song.flac --cover front.jpg

Examples:
  metanote cover song.flac
  metanote cover song.flac --extract cover.jpg`,
	Args: cobra.ExactArgs(1),
	Run:  runCover,
}

func init() {
	rootCmd.AddCommand(coverCmd)

	coverCmd.Flags().StringVar(&coverExtract, "extract", "", "Write the cover image to this path")
}

func runCover(cmd *cobra.Command, args []string) {
	file, err := metanote.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	cover := file.ExtractCover()
	if cover == nil {
		fmt.Fprintf(os.Stderr, "%s: no embedded cover\n", file.Path)
		os.Exit(1)
	}

	if coverExtract == "" {
		fmt.Printf("%s: %s, %s\n", file.Path, cover.MIME, humanSize(int64(len(cover.Data))))
		return
	}

	if err := os.WriteFile(coverExtract, cover.Data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%s, %s)\n", coverExtract, cover.MIME, humanSize(int64(len(cover.Data))))
}
