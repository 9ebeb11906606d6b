package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/simonhull/metanote"
)

// audioExtensions is the shortlist used when walking directories.
// Explicit file arguments always pass through; the engine sniffs
// content regardless of name either way.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
	".opus": true,
}

// expandPaths turns a mix of file and directory arguments into a flat
// file list. Directories are walked recursively in lexical order.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if audioExtensions[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// openAll opens every path, reporting and skipping the ones that fail.
// The returned cleanup closes everything that opened.
func openAll(paths []string) (files []*metanote.File, failed int, cleanup func()) {
	for _, path := range paths {
		file, err := metanote.Open(path)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", path, err)
			log.Debug("open failed", zap.String("path", path), zap.Error(err))
			continue
		}
		files = append(files, file)
	}
	cleanup = func() {
		for _, file := range files {
			_ = file.Close() //nolint:errcheck // Read-only handles
		}
	}
	return files, failed, cleanup
}

// humanSize renders byte counts on a B/KB/MB/GB/TB ladder.
func humanSize(n int64) string {
	f := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if f < 1024.0 {
			return fmt.Sprintf("%3.1f%s", f, unit)
		}
		f /= 1024.0
	}
	return fmt.Sprintf("%.1fPB", f)
}
