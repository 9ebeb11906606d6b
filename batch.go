package metanote

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one file in a batch operation.
type Outcome struct {
	// Path of the file, as it was when the batch started.
	Path string

	// Err is nil when the file was processed successfully.
	Err error
}

// BatchResult holds per-file outcomes of a batch operation, in the
// same order as the input files. One file failing never affects its
// siblings; there is no batch-level rollback.
type BatchResult struct {
	Outcomes []Outcome
}

// SavedCount returns how many files succeeded.
func (r *BatchResult) SavedCount() int {
	return len(r.Outcomes) - r.FailedCount()
}

// FailedCount returns how many files failed.
func (r *BatchResult) FailedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes, in input order.
func (r *BatchResult) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// BatchOption configures a batch operation.
type BatchOption func(*batchOptions)

// batchOptions holds configuration for batch operations.
type batchOptions struct {
	concurrency int
	saveOpts    []SaveOption
}

func defaultBatchOptions() *batchOptions {
	return &batchOptions{concurrency: runtime.NumCPU()}
}

// WithConcurrency caps how many files a batch processes in parallel.
// The default is runtime.NumCPU(). Values below 1 mean sequential.
func WithConcurrency(n int) BatchOption {
	return func(o *batchOptions) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithSaveOptions passes save options through to every file's Save in
// the batch, e.g. WithSaveOptions(WithBackup(".bak"), WithForce()).
func WithSaveOptions(opts ...SaveOption) BatchOption {
	return func(o *batchOptions) {
		o.saveOpts = opts
	}
}

// ApplyDelta applies one sparse edit set to many files and saves each.
//
// The delta is validated once up front; an invalid delta (say, a GIF
// cover) returns an error before any file is touched. After that, files
// are processed with bounded parallelism and every file gets its own
// outcome in the returned BatchResult: a failed save reports its error
// there while the other files proceed. A failed file is rolled back in
// memory too, so its record keeps matching what is on disk.
//
// Cancelling the context stops new files from starting; files already
// saving finish their atomic write. Files never started report the
// context error as their outcome.
//
// Applying the same delta twice is safe: the second run writes the same
// values again.
func ApplyDelta(ctx context.Context, files []*File, delta *Delta, opts ...BatchOption) (*BatchResult, error) {
	options := defaultBatchOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := delta.validate(); err != nil {
		return nil, err
	}

	result := &BatchResult{Outcomes: make([]Outcome, len(files))}

	g := &errgroup.Group{}
	g.SetLimit(options.concurrency)

	for i, file := range files {
		result.Outcomes[i].Path = file.Path

		// go directive < 1.22: capture per-iteration copies.
		i, file := i, file
		g.Go(func() error {
			// Outcomes carry per-file errors; the group itself never
			// fails, so one bad file cannot cancel its siblings.
			if err := ctx.Err(); err != nil {
				result.Outcomes[i].Err = err
				return nil
			}
			result.Outcomes[i].Err = applyAndSave(file, delta, options.saveOpts)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Goroutines only ever return nil

	return result, nil
}

// applyAndSave edits one record and saves it, restoring the in-memory
// record on failure so memory stays consistent with disk.
func applyAndSave(file *File, delta *Delta, saveOpts []SaveOption) error {
	prevTags := *file.Tags.Clone()
	prevCover := file.Cover
	prevDirty := file.CoverDirty_

	restore := func() {
		file.Tags = prevTags
		file.Cover = prevCover
		file.CoverDirty_ = prevDirty
	}

	if err := delta.apply(file); err != nil {
		restore()
		return err
	}
	if err := file.Save(saveOpts...); err != nil {
		restore()
		return err
	}
	return nil
}
