package ipa

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/flate"
	"github.com/nguyengg/ipa/pathcodec"
)

// Unzip extracts the archive into outputDir, which must already exist, and returns the path of the extracted bundle.
//
// Entries are visited in the order they are stored. The "Payload/" prefix is removed so that the bundle ends up directly
// inside outputDir:
//
//	Payload/MyApp.app/Info.plist  -> outputDir/MyApp.app/Info.plist
//	Payload/MyApp.app/a:b.txt     -> outputDir/MyApp.app/a__colon__b.txt
//	__MACOSX/Payload/._MyApp.app  -> (skipped)
//
// Names are sanitized with [Options.Mapping] and joined to outputDir such that no entry can escape outputDir. Each file
// entry must produce exactly as many bytes as its declared uncompressed size; a truncated or overrun entry is an error.
//
// Any failure aborts the extraction and leaves already extracted entries on disk. The returned error is an *Error with
// Kind NoSuchFile if the archive or outputDir cannot be opened, CorruptFile if the archive or one of its entries is
// malformed, MissingAppBundle if every entry was extracted but none belongs to a "Payload/*.app" bundle, or Unknown.
func (e *Engine) Unzip(ctx context.Context, archivePath, outputDir string) (string, error) {
	logger := e.opts.Logger.With(slog.String("archive", archivePath), slog.String("output", outputDir))
	fail := func(kind Kind, err error) (string, error) {
		logger.Error("extract archive failed", slog.Any("error", err))
		return "", &Error{Kind: kind, Op: "unzip", Path: archivePath, Err: err}
	}

	switch fi, err := os.Stat(outputDir); {
	case err != nil:
		return fail(NoSuchFile, fmt.Errorf("stat output directory error: %w", err))
	case !fi.IsDir():
		return fail(NoSuchFile, fmt.Errorf("output (path=%s) is not a directory", outputDir))
	}

	zr, kind, err := e.openReader(archivePath)
	if err != nil {
		return fail(kind, err)
	}
	defer zr.Close()

	var (
		bundle string
		buf    = make([]byte, e.opts.BufferSize)
	)

	for _, f := range zr.File {
		select {
		case <-ctx.Done():
			return fail(Unknown, ctx.Err())
		default:
		}

		name := decodeName(&f.FileHeader, e.opts.LegacyEncoding)
		if isResourceFork(name) {
			logger.Debug("skipped resource fork entry", slog.String("name", name))
			continue
		}

		rel := strings.TrimPrefix(name, PayloadDir+"/")
		if b := bundleName(rel); bundle == "" && b != "" {
			bundle = b
		}
		if strings.Trim(rel, "/") == "" {
			continue
		}

		path, err := e.outputPath(outputDir, rel, logger)
		if err != nil {
			return fail(Unknown, err)
		}

		if strings.HasSuffix(name, "/") {
			if err = os.MkdirAll(path, 0755); err != nil {
				return fail(Unknown, fmt.Errorf("create directory (path=%s) error: %w", path, err))
			}

			logger.Debug("extracted directory", slog.String("name", name))
			e.report(name, path, 0, true)
			continue
		}

		if err = e.extractFile(ctx, f, name, path, buf); err != nil {
			return fail(readErrorKind(err), err)
		}

		logger.Debug("extracted file", slog.String("name", name), slog.Uint64("size", f.UncompressedSize64))
	}

	if bundle == "" {
		return fail(MissingAppBundle, fmt.Errorf("no %s/*.app entry found", PayloadDir))
	}

	bundlePath, err := e.outputPath(outputDir, bundle, logger)
	if err != nil {
		return fail(Unknown, err)
	}

	logger.Debug("extracted archive", slog.String("bundle", bundlePath))
	return bundlePath, nil
}

// archiveReader owns the file being read by its zip.Reader.
type archiveReader struct {
	*zip.Reader
	f *os.File
}

func (r *archiveReader) Close() error {
	return r.f.Close()
}

// openReader opens the named archive for reading with flate as the deflate decompressor.
//
// If the file cannot be opened, Kind is NoSuchFile. If the file is not a valid zip archive, Kind is CorruptFile.
func (e *Engine) openReader(name string) (*archiveReader, Kind, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, NoSuchFile, fmt.Errorf("open archive error: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, NoSuchFile, fmt.Errorf("stat archive error: %w", err)
	}

	zr, err := zip.NewReader(f, fi.Size())
	switch {
	case err == nil:
	case errors.Is(err, zip.ErrInsecurePath) && zr != nil:
		// names are sanitized and joined to the output directory safely.
	default:
		_ = f.Close()
		return nil, CorruptFile, fmt.Errorf("read archive directory error: %w", err)
	}

	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	return &archiveReader{Reader: zr, f: f}, Unknown, nil
}

// outputPath maps the archive name (without the Payload prefix) to a path inside outputDir.
func (e *Engine) outputPath(outputDir, rel string, logger *slog.Logger) (string, error) {
	if !e.opts.Mapping.Reversible(rel) {
		logger.Warn("entry name will not survive re-archiving", slog.String("name", rel))
	}

	path, err := securejoin.SecureJoin(outputDir, e.opts.Mapping.Sanitize(pathcodec.ToNative(rel)))
	if err != nil {
		return "", fmt.Errorf("resolve output path (name=%s) error: %w", rel, err)
	}

	return path, nil
}

// extractFile creates (or truncates) the file at path and copies the entry's content to it.
func (e *Engine) extractFile(ctx context.Context, f *zip.File, name, path string, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent directories to file (path=%s) error: %w", path, err)
	}

	perm := f.Mode().Perm() | 0600
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file (path=%s) error: %w", path, err)
	}

	src, err := f.Open()
	if err != nil {
		_ = dst.Close()
		return fmt.Errorf("open file (name=%s) in archive error: %w", name, err)
	}

	written, err := copyEntry(ctx, dst, src, f.UncompressedSize64, buf, e.reportFn(name, path))
	_ = src.Close()
	if err != nil {
		_ = dst.Close()
		return fmt.Errorf("extract file (name=%s) in archive to file (path=%s) error: %w", name, path, err)
	}

	if err = dst.Close(); err != nil {
		return fmt.Errorf("complete file (path=%s) error: %w", path, err)
	}

	if mtime := modTime(&f.FileHeader); !mtime.IsZero() {
		if err = os.Chtimes(path, mtime, mtime); err != nil {
			return fmt.Errorf("change mod time of file (path=%s) error: %w", path, err)
		}
	}

	e.report(name, path, written, true)
	return nil
}

// bundleName returns "MyApp.app" if the name (without the Payload prefix) is inside or is the "MyApp.app/" directory.
func bundleName(rel string) string {
	paths := strings.SplitN(rel, "/", 2)
	if len(paths) != 2 || !strings.EqualFold(filepath.Ext(paths[0]), ".app") {
		return ""
	}

	return paths[0]
}

// readErrorKind classifies an error from extracting a file entry.
func readErrorKind(err error) Kind {
	var corrupt flate.CorruptInputError

	switch {
	case errors.Is(err, ErrTruncated),
		errors.Is(err, ErrOverrun),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, zip.ErrChecksum),
		errors.Is(err, zip.ErrFormat),
		errors.Is(err, zip.ErrAlgorithm),
		errors.As(err, &corrupt):
		return CorruptFile
	default:
		return Unknown
	}
}
