package metanote

// SaveOption configures behavior when saving audio files.
//
// Options use the functional options pattern for clean, extensible APIs.
//
// Example:
//
//	err := file.Save(
//	    metanote.WithBackup(".bak"),
//	    metanote.WithVerify(),
//	)
type SaveOption func(*saveOptions)

// saveOptions holds configuration for saving files.
type saveOptions struct {
	backupSuffix    string // Suffix for backup copy (e.g., ".bak")
	verify          bool   // Re-read after write to verify
	force           bool   // Skip the stale-read guard
	preserveModTime bool   // Keep original modification time
}

// defaultSaveOptions returns the default configuration for saving.
func defaultSaveOptions() *saveOptions {
	return &saveOptions{}
}

// WithBackup keeps a copy of the original file beside the saved one.
//
// The backup gets the given suffix appended to the original filename:
// WithBackup(".bak") preserves "song.mp3" as "song.mp3.bak". An existing
// backup with the same name is overwritten.
//
// Example:
//
//	err := file.Save(metanote.WithBackup(".bak"))
func WithBackup(suffix string) SaveOption {
	return func(o *saveOptions) {
		o.backupSuffix = suffix
	}
}

// WithVerify re-reads the file after writing to check integrity.
//
// After the atomic rename, the file is re-opened and parsed, and the
// tags and cover are compared against what was saved. This adds the
// cost of a second parse but catches a write the codec got wrong before
// anything else reads the file.
//
// Example:
//
//	err := file.Save(metanote.WithVerify())
func WithVerify() SaveOption {
	return func(o *saveOptions) {
		o.verify = true
	}
}

// WithForce skips the stale-read guard.
//
// By default Save fails with StaleReadError when the file on disk
// changed after it was opened, because writing would discard the other
// writer's changes. WithForce overwrites regardless.
//
// Example:
//
//	err := file.Save(metanote.WithForce())
func WithForce() SaveOption {
	return func(o *saveOptions) {
		o.force = true
	}
}

// WithPreserveModTime keeps the original file modification time.
//
// By default, saving updates the file's modification time to the
// current time. This option restores the original timestamp after the
// write, useful when updating metadata without changing the "modified"
// date other tools sort by.
//
// Example:
//
//	err := file.Save(metanote.WithPreserveModTime())
func WithPreserveModTime() SaveOption {
	return func(o *saveOptions) {
		o.preserveModTime = true
	}
}
