package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simonhull/metanote"
)

var (
	setCoverPath   string
	setRemoveCover bool
	setBackup      string
	setForce       bool
	setVerify      bool
)

var setCmd = &cobra.Command{
	Use:   "set <path>... [flags]",
	Short: "Edit tags across one or more files",
	Long: `Apply the same edit to every file. Only the fields you pass change;
everything else, including tags metanote does not model, is preserved.

Passing an empty value stores an empty tag; use --clear-<field> to
remove the tag entirely.

Examples:
  metanote set album/*.flac --album "City Lights" --year 2021
  metanote set song.mp3 --clear-comment --cover front.jpg
  metanote set ~/Music/rips/ --genre Jazz --backup .bak`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)

	for _, field := range metanote.Fields() {
		name := string(field)
		setCmd.Flags().String(name, "", "Set "+name)
		setCmd.Flags().Bool("clear-"+name, false, "Remove "+name)
	}
	setCmd.Flags().StringVar(&setCoverPath, "cover", "", "Path to a JPEG or PNG to embed as the front cover")
	setCmd.Flags().BoolVar(&setRemoveCover, "remove-cover", false, "Remove embedded artwork")
	setCmd.Flags().StringVar(&setBackup, "backup", "", "Keep a copy of each original with this suffix (e.g. .bak)")
	setCmd.Flags().BoolVar(&setForce, "force", false, "Save even if a file changed on disk since it was opened")
	setCmd.Flags().BoolVar(&setVerify, "verify", false, "Re-read each file after saving and check the edit took")
}

func runSet(cmd *cobra.Command, args []string) {
	deltaOpts, err := deltaOptions(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	delta := metanote.NewDelta(deltaOpts...)
	if delta.IsZero() {
		fmt.Fprintln(os.Stderr, "nothing to change: pass at least one field, clear or cover flag")
		os.Exit(1)
	}

	paths, err := expandPaths(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	files, openFailed, cleanup := openAll(paths)
	defer cleanup()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no files could be opened")
		os.Exit(1)
	}

	var saveOpts []metanote.SaveOption
	if setBackup != "" {
		saveOpts = append(saveOpts, metanote.WithBackup(setBackup))
	}
	if setForce {
		saveOpts = append(saveOpts, metanote.WithForce())
	}
	if setVerify {
		saveOpts = append(saveOpts, metanote.WithVerify())
	}

	log.Debug("applying edit",
		zap.Int("files", len(files)),
		zap.Int("workers", concurrency()),
	)

	result, err := metanote.ApplyDelta(cmd.Context(), files, delta,
		metanote.WithConcurrency(concurrency()),
		metanote.WithSaveOptions(saveOpts...),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, outcome := range result.Outcomes {
		if outcome.Err != nil {
			fmt.Fprintf(os.Stderr, "failed %s: %v\n", outcome.Path, outcome.Err)
		} else {
			fmt.Printf("saved %s\n", outcome.Path)
		}
	}
	fmt.Printf("%d saved, %d failed\n", result.SavedCount(), result.FailedCount()+openFailed)

	if result.FailedCount() > 0 || openFailed > 0 {
		os.Exit(1)
	}
}

// deltaOptions translates the set flags into a sparse edit. Only flags
// the user actually passed become part of the delta, which is how an
// explicitly empty value stays distinct from an untouched field.
func deltaOptions(cmd *cobra.Command) ([]metanote.DeltaOption, error) {
	var opts []metanote.DeltaOption
	flags := cmd.Flags()

	for _, field := range metanote.Fields() {
		name := string(field)
		set := flags.Changed(name)
		clear, _ := flags.GetBool("clear-" + name)

		if set && clear {
			return nil, fmt.Errorf("cannot both set and clear %s", name)
		}
		if set {
			value, _ := flags.GetString(name)
			opts = append(opts, metanote.SetField(field, value))
		}
		if clear {
			opts = append(opts, metanote.ClearField(field))
		}
	}

	if setCoverPath != "" && setRemoveCover {
		return nil, fmt.Errorf("cannot both set and remove the cover")
	}
	if setCoverPath != "" {
		data, err := os.ReadFile(setCoverPath)
		if err != nil {
			return nil, fmt.Errorf("read cover: %w", err)
		}
		opts = append(opts, metanote.SetCover(data))
	}
	if setRemoveCover {
		opts = append(opts, metanote.ClearCover())
	}

	return opts, nil
}
