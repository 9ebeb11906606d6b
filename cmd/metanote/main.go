package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// config holds the environment-driven settings. Flags cover per-run
// choices; the environment covers machine-level ones.
type config struct {
	// Concurrency caps parallel saves in batch commands.
	// Zero means one worker per CPU.
	Concurrency int `envconfig:"CONCURRENCY"`

	// LogLevel sets the minimum level for diagnostic output on stderr.
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
}

var (
	cfg     config
	log     *zap.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "metanote",
	Short: "Inspect and batch-edit audio file metadata",
	Long: `metanote reads and writes tags in MP3, FLAC, M4A, WAV, OGG and OPUS files.

Formats are detected from file content, never from the extension.
Directory arguments are walked recursively for audio files. All writes
are atomic: the original file is replaced only after the rewritten copy
is complete and synced.

Configuration comes from METANOTE_* environment variables
(METANOTE_CONCURRENCY, METANOTE_LOG_LEVEL).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := envconfig.Process("metanote", &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid environment: %v\n", err)
			os.Exit(1)
		}
		log = buildLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// buildLogger returns a console logger on stderr so command output on
// stdout stays clean enough to pipe.
func buildLogger() *zap.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid METANOTE_LOG_LEVEL %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// concurrency resolves the worker count for batch commands.
func concurrency() int {
	if cfg.Concurrency > 0 {
		return cfg.Concurrency
	}
	return runtime.NumCPU()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if log != nil {
		_ = log.Sync() //nolint:errcheck // Stderr sync failures are unreportable
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
