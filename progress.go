package ipa

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
)

// ProgressReporter is called to provide update on archiving or extracting individual entries.
//
//   - src: path of the file being read (the file on disk when archiving, the entry name when extracting)
//   - dst: path of the file being written (the entry name when archiving, the file on disk when extracting)
//   - written: number of bytes of the entry that has been copied so far
//   - done: is true only when the entry has been copied in its entirety
//
// The method will be called at least once for every entry with `done` being true, including directories and empty
// files.
type ProgressReporter func(src, dst string, written int64, done bool)

// LogProgressReporter creates a reporter that logs at debug level after each entry has been copied.
func LogProgressReporter(logger *slog.Logger) ProgressReporter {
	return func(src, dst string, written int64, done bool) {
		if done {
			logger.Debug("copied entry", slog.String("src", src), slog.String("dst", dst), slog.Int64("size", written))
		}
	}
}

// NewProgressBarReporter creates a progress reporter that adds the bytes being copied to the given progress bar.
//
// The bar's max should have been set to the total number of bytes to be copied, see CountDirContents and
// TotalUncompressedSize.
func NewProgressBarReporter(bar *progressbar.ProgressBar) ProgressReporter {
	var totalWritten int64
	var previousSrc string
	return func(src, dst string, written int64, done bool) {
		if previousSrc != src {
			totalWritten = 0
			previousSrc = src
		}

		_ = bar.Add64(written - totalWritten)
		totalWritten = written
	}
}

// CountDirContents counts all regular files in root and returns the total size of those files as well.
func CountDirContents(ctx context.Context, root string) (n int, size int64, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || !d.Type().IsRegular() {
			return err
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		n++
		size += fi.Size()
		return nil
	})
	return
}

// TotalUncompressedSize returns the sum of the declared sizes of all the given entries.
func TotalUncompressedSize(entries []ArchiveEntry) (size int64) {
	for _, e := range entries {
		size += int64(e.UncompressedSize)
	}
	return
}
