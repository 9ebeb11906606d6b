package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simonhull/metanote"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <path>... [flags]",
	Short: "Export tags as CSV",
	Long: `Write one CSV row per file with a fixed column order:

  path,title,artist,album,year,track,genre,comment,lyrics,fileSizeBytes

Absent fields are empty cells. Quoting follows standard CSV rules, so
commas and newlines inside values survive a round trip.

Examples:
  metanote export ~/Music/ --out library.csv
  metanote export album/*.flac`,
	Args: cobra.MinimumNArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) {
	paths, err := expandPaths(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no audio files found")
		os.Exit(1)
	}

	// A spreadsheet silently missing rows is worse than no spreadsheet,
	// so export refuses to run unless every file opens.
	files, err := metanote.OpenMany(cmd.Context(), paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, file := range files {
			_ = file.Close() //nolint:errcheck // Read-only handles
		}
	}()

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	rows := metanote.Project(files)

	w := csv.NewWriter(out)
	if err := w.Write(metanote.Columns()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if exportOut != "" {
		fmt.Printf("wrote %d rows to %s\n", len(rows), exportOut)
	}
}
