package services

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepScratchFiles deletes leftover upload scratch files and temp GIF
// renditions older than maxAge. An aborted client connection can strand a
// scratch file past the pipeline's own cleanup; the sweep bounds how long it
// survives.
func SweepScratchFiles(maxAge time.Duration) {
	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		slog.Warn("scratch sweep: read temp dir", "error", err)
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasPrefix(name, "upload-") && !strings.HasPrefix(name, "gif-")) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(os.TempDir(), name)
		if err := os.Remove(path); err != nil {
			slog.Warn("scratch sweep: remove", "path", path, "error", err)
		} else {
			slog.Info("scratch sweep: removed stale file", "path", path)
		}
	}
}

// RunScratchSweeper sweeps on a fixed interval until the process exits.
// Started from main in its own goroutine.
func RunScratchSweeper(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		SweepScratchFiles(maxAge)
	}
}
