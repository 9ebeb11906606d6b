package metanote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/simonhull/metanote/internal/parsing"
	"github.com/simonhull/metanote/internal/types"
)

// DefaultRenameTemplate is the pattern PlanRename uses when given an
// empty template.
const DefaultRenameTemplate = "{artist} - {title}"

// RenameEntry is one planned rename.
type RenameEntry struct {
	OldPath string
	NewPath string

	file *File
}

// RenameSkip records a file the planner left out, with the reason.
type RenameSkip struct {
	Path   string
	Reason string
}

// RenamePlan is a validated set of renames, ready to execute.
//
// Entries holds the renames in input order. Skipped lists files whose
// template fields were all absent; Unchanged lists files already named
// exactly what the template produces. Neither is an error.
type RenamePlan struct {
	Entries   []RenameEntry
	Skipped   []RenameSkip
	Unchanged []string
}

// RenameOption configures the rename planner.
type RenameOption func(*renameOptions)

type renameOptions struct {
	numericSuffix bool
}

// WithNumericSuffix resolves naming collisions instead of rejecting
// them: the second file to claim a taken name gets "_2" appended before
// the extension, the third "_3", and so on, in plan order.
func WithNumericSuffix() RenameOption {
	return func(o *renameOptions) {
		o.numericSuffix = true
	}
}

// PlanRename derives a target filename for each file from a "{field}"
// template and validates the whole set before anything moves.
//
// Field values are sanitized to filesystem-safe form (letters, digits,
// '_' and '-'; spaces become underscores); a value that sanitizes to
// nothing falls back to "Unknown" for the artist and to the source
// filename's stem for the title. The extension is always kept from the
// source path, and files stay in their directory: the template names
// the file, not its location.
//
// Files whose template fields are all absent are skipped and reported
// on the plan; they never fail it. Files already carrying their target
// name are dropped from the plan as unchanged.
//
// By default the planner rejects collisions: two files mapping to the
// same target, or a target already existing on disk and not renamed
// away by an earlier entry of this plan, produce a CollisionError
// naming every offending source. WithNumericSuffix switches to
// deterministic disambiguation instead. Silent overwrites never
// happen.
func PlanRename(files []*File, template string, opts ...RenameOption) (*RenamePlan, error) {
	options := &renameOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if template == "" {
		template = DefaultRenameTemplate
	}
	tmpl, err := parsing.ParseTemplate(template)
	if err != nil {
		return nil, err
	}

	plan := &RenamePlan{}
	for _, file := range files {
		if !anyFieldPresent(file, tmpl.Fields()) {
			plan.Skipped = append(plan.Skipped, RenameSkip{
				Path:   file.Path,
				Reason: fmt.Sprintf("no value for any template field (%s)", fieldList(tmpl.Fields())),
			})
			continue
		}

		target := renderTarget(file, tmpl)
		if target == file.Path {
			plan.Unchanged = append(plan.Unchanged, file.Path)
			continue
		}
		plan.Entries = append(plan.Entries, RenameEntry{
			OldPath: file.Path,
			NewPath: target,
			file:    file,
		})
	}

	if options.numericSuffix {
		resolveWithSuffixes(plan)
		return plan, nil
	}
	if err := rejectCollisions(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Execute performs the planned renames, in plan order.
//
// Each rename succeeds or fails on its own: a failed rename leaves that
// record at its old path (memory stays consistent with disk) and the
// rest of the plan proceeds. Successful renames update File.Path
// immediately. A target occupied by the time its rename runs (a file
// created after planning) fails that entry rather than replacing the
// occupant.
func (p *RenamePlan) Execute(ctx context.Context) *BatchResult {
	result := &BatchResult{Outcomes: make([]Outcome, len(p.Entries))}

	for i, entry := range p.Entries {
		result.Outcomes[i].Path = entry.OldPath

		if err := ctx.Err(); err != nil {
			result.Outcomes[i].Err = err
			continue
		}
		// os.Rename replaces existing targets silently; a surprise
		// occupant must fail the entry, not lose its contents.
		if _, err := os.Stat(entry.NewPath); err == nil {
			result.Outcomes[i].Err = &types.WriteIOError{
				Path: entry.OldPath,
				Op:   "rename",
				Err:  fmt.Errorf("target %s: %w", entry.NewPath, fs.ErrExist),
			}
			continue
		}
		if err := os.Rename(entry.OldPath, entry.NewPath); err != nil {
			result.Outcomes[i].Err = &types.WriteIOError{
				Path: entry.OldPath,
				Op:   "rename",
				Err:  err,
			}
			continue
		}
		entry.file.Path = entry.NewPath
	}

	return result
}

// anyFieldPresent reports whether the file carries at least one of the
// template's fields. Present-but-empty counts as present.
func anyFieldPresent(file *File, fields []Field) bool {
	for _, field := range fields {
		if _, ok := file.Tags.Get(field); ok {
			return true
		}
	}
	return false
}

// renderTarget expands the template for one file and builds the full
// target path, keeping the directory and extension of the source.
func renderTarget(file *File, tmpl *parsing.Template) string {
	ext := filepath.Ext(file.Path)
	stem := strings.TrimSuffix(filepath.Base(file.Path), ext)

	name := tmpl.Render(func(field Field) string {
		value, _ := file.Tags.Get(field)
		safe := parsing.SanitizeFilename(value)
		if safe == "" {
			switch field {
			case FieldArtist:
				return "Unknown"
			case FieldTitle:
				return stem
			}
		}
		return safe
	})

	return filepath.Join(filepath.Dir(file.Path), name+ext)
}

// rejectCollisions fails the plan when two entries share a target or a
// target is occupied on disk. An occupied target passes only when its
// occupant is renamed away by an EARLIER entry: Execute runs in plan
// order, and os.Rename replaces existing files, so a later freeing
// would arrive after the clobber. Every collision is reported, each
// naming all its sources.
func rejectCollisions(plan *RenamePlan) error {
	claims := make(map[string][]string)
	for _, entry := range plan.Entries {
		claims[entry.NewPath] = append(claims[entry.NewPath], entry.OldPath)
	}

	// freed holds the source paths vacated before the current entry runs.
	freed := make(map[string]bool, len(plan.Entries))

	var collisions []error
	seen := make(map[string]bool)
	for _, entry := range plan.Entries {
		target := entry.NewPath
		if !seen[target] {
			seen[target] = true

			paths := claims[target]
			switch {
			case len(paths) > 1:
				collisions = append(collisions, &types.CollisionError{Target: target, Paths: paths})
			case !freed[target]:
				if _, err := os.Stat(target); err == nil {
					collisions = append(collisions, &types.CollisionError{Target: target, Paths: paths})
				}
			}
		}
		freed[entry.OldPath] = true
	}

	return errors.Join(collisions...)
}

// resolveWithSuffixes disambiguates colliding targets by appending _2,
// _3, ... before the extension, claiming names in plan order. Names
// already on disk count as taken even when the plan would move them
// later, so the outcome never depends on execution order.
func resolveWithSuffixes(plan *RenamePlan) {
	claimed := make(map[string]bool, len(plan.Entries))

	entries := plan.Entries
	plan.Entries = plan.Entries[:0]
	for _, entry := range entries {
		target := entry.NewPath
		for n := 2; taken(target, entry.OldPath, claimed); n++ {
			ext := filepath.Ext(entry.NewPath)
			base := strings.TrimSuffix(entry.NewPath, ext)
			target = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		claimed[target] = true

		if target == entry.OldPath {
			// The suffix walk landed on the file's own current name.
			plan.Unchanged = append(plan.Unchanged, entry.OldPath)
			continue
		}
		entry.NewPath = target
		plan.Entries = append(plan.Entries, entry)
	}
}

// taken reports whether a target name is unavailable: already claimed
// by an earlier entry, or occupied on disk by anything other than the
// entry's own source file.
func taken(target, source string, claimed map[string]bool) bool {
	if claimed[target] {
		return true
	}
	if target == source {
		return false
	}
	_, err := os.Stat(target)
	return err == nil
}

// fieldList joins field names for skip messages.
func fieldList(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
