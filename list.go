package ipa

import (
	"context"
	"log/slog"
)

// List returns the entries of the archive in the order they are stored, excluding __MACOSX resource fork entries.
//
// The returned error is an *Error with Kind NoSuchFile or CorruptFile if the archive cannot be read.
func (e *Engine) List(ctx context.Context, archivePath string) ([]ArchiveEntry, error) {
	zr, kind, err := e.openReader(archivePath)
	if err != nil {
		e.opts.Logger.Error("list archive failed", slog.String("archive", archivePath), slog.Any("error", err))
		return nil, &Error{Kind: kind, Op: "list", Path: archivePath, Err: err}
	}
	defer zr.Close()

	entries := make([]ArchiveEntry, 0, len(zr.File))
	for _, f := range zr.File {
		select {
		case <-ctx.Done():
			return nil, &Error{Kind: Unknown, Op: "list", Path: archivePath, Err: ctx.Err()}
		default:
		}

		if entry := NewArchiveEntry(f, e.opts.LegacyEncoding); !isResourceFork(entry.Name) {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
