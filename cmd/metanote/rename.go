package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simonhull/metanote"
)

var (
	renameTemplate string
	renameSuffix   bool
	renameDryRun   bool
)

var renameCmd = &cobra.Command{
	Use:   "rename <path>... [flags]",
	Short: "Rename files from their tags",
	Long: `Derive new filenames from tag values using a {field} template.
Values are sanitized for the filesystem (spaces become underscores);
the extension is always kept. Files where every template field is
absent are skipped.

By default a plan that would give two files the same name, or claim a
name already on disk, is rejected before anything moves. Pass
--suffix-on-collision to resolve collisions with _2, _3, ... instead.

Examples:
  metanote rename album/ --dry-run
  metanote rename album/ --template "{track} {title}"
  metanote rename ~/Music/ --suffix-on-collision`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)

	renameCmd.Flags().StringVar(&renameTemplate, "template", metanote.DefaultRenameTemplate,
		"Filename pattern; placeholders: {title} {artist} {album} {year} {track} {genre} {comment} {lyrics}")
	renameCmd.Flags().BoolVar(&renameSuffix, "suffix-on-collision", false,
		"Resolve name collisions with numeric suffixes instead of failing")
	renameCmd.Flags().BoolVar(&renameDryRun, "dry-run", false, "Show the plan without renaming anything")
}

func runRename(cmd *cobra.Command, args []string) {
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

	var planOpts []metanote.RenameOption
	if renameSuffix {
		planOpts = append(planOpts, metanote.WithNumericSuffix())
	}

	plan, err := metanote.PlanRename(files, renameTemplate, planOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, skip := range plan.Skipped {
		fmt.Fprintf(os.Stderr, "skip %s: %s\n", skip.Path, skip.Reason)
	}
	for _, entry := range plan.Entries {
		fmt.Printf("%s -> %s\n", entry.OldPath, entry.NewPath)
	}
	if len(plan.Unchanged) > 0 {
		fmt.Printf("%d already named correctly\n", len(plan.Unchanged))
	}

	if renameDryRun {
		return
	}
	if len(plan.Entries) == 0 {
		if openFailed > 0 {
			os.Exit(1)
		}
		return
	}

	log.Debug("executing rename plan", zap.Int("entries", len(plan.Entries)))

	result := plan.Execute(cmd.Context())
	for _, outcome := range result.Failures() {
		fmt.Fprintf(os.Stderr, "failed %s: %v\n", outcome.Path, outcome.Err)
	}
	fmt.Printf("%d renamed, %d failed\n", result.SavedCount(), result.FailedCount())

	if result.FailedCount() > 0 || openFailed > 0 {
		os.Exit(1)
	}
}
