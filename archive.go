package ipa

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nguyengg/ipa/pathcodec"
	"github.com/nguyengg/ipa/util"
)

// Zip archives the bundle directory into an IPA archive and returns the archive's path.
//
// bundleDir is made absolute first, so "." archives the current directory under its own name. If archivePath is empty,
// ArchivePath is used to derive it. If a file already exists at archivePath, it is removed first. Every file and
// directory in bundleDir is added under "Payload/<base name of bundleDir>/" in lexical order:
//
//	MyApp.app/Info.plist      -> Payload/MyApp.app/Info.plist
//	MyApp.app/Base.lproj/     -> Payload/MyApp.app/Base.lproj/
//	MyApp.app/a__colon__b.txt -> Payload/MyApp.app/a:b.txt
//
// Files are deflated with mode 0100644 and directories are stored with mode 040755; the permissions on disk are
// ignored. Symlinks are resolved: a link to a file is stored as a file, a link to a directory as an empty directory.
//
// Any failure aborts the operation and leaves the partially written archive on disk. The returned error is an *Error
// with Kind NoSuchFile if bundleDir is not a directory, UnknownWrite otherwise.
func (e *Engine) Zip(ctx context.Context, bundleDir, archivePath string) (string, error) {
	// the bundle's base name becomes the archive root, so "." and ".." must be resolved first.
	abs, err := filepath.Abs(bundleDir)
	if err != nil {
		return archivePath, &Error{Kind: NoSuchFile, Op: "zip", Path: bundleDir, Err: fmt.Errorf("resolve bundle path error: %w", err)}
	}
	bundleDir = abs
	if archivePath == "" {
		archivePath = ArchivePath(bundleDir)
	}

	logger := e.opts.Logger.With(slog.String("bundle", bundleDir), slog.String("archive", archivePath))
	fail := func(kind Kind, err error) (string, error) {
		logger.Error("archive bundle failed", slog.Any("error", err))
		return archivePath, &Error{Kind: kind, Op: "zip", Path: bundleDir, Err: err}
	}

	switch fi, err := os.Stat(bundleDir); {
	case err != nil:
		return fail(NoSuchFile, fmt.Errorf("stat bundle error: %w", err))
	case !fi.IsDir():
		return fail(NoSuchFile, fmt.Errorf("bundle (path=%s) is not a directory", bundleDir))
	}

	if err := os.Remove(archivePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fail(UnknownWrite, fmt.Errorf("remove existing archive error: %w", err))
	}

	f, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return fail(UnknownWrite, fmt.Errorf("create archive error: %w", err))
	}

	zw := e.newZipWriter(f)
	closer := util.ChainCloser(zw.Close, f.Close)

	if err = e.addBundle(ctx, zw, bundleDir, archivePath, logger); err != nil {
		_ = closer()
		return fail(UnknownWrite, err)
	}

	if err = closer(); err != nil {
		return fail(UnknownWrite, fmt.Errorf("complete archive error: %w", err))
	}

	logger.Debug("archived bundle")
	return archivePath, nil
}

// addBundle walks bundleDir and adds one entry per file or directory, excluding bundleDir itself.
//
// The archive being written is skipped if it happens to be inside bundleDir.
func (e *Engine) addBundle(ctx context.Context, zw *zip.Writer, bundleDir, archivePath string, logger *slog.Logger) error {
	root := PayloadDir + "/" + filepath.Base(bundleDir) + "/"
	buf := make([]byte, e.opts.BufferSize)

	archivePath, err := filepath.Abs(archivePath)
	if err != nil {
		return fmt.Errorf("resolve archive path error: %w", err)
	}

	return filepath.WalkDir(bundleDir, func(srcPath string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("walk dir error: %w", err)
		}
		if srcPath == bundleDir {
			return nil
		}
		if abs, _ := filepath.Abs(srcPath); abs == archivePath {
			return nil
		}

		rel, err := filepath.Rel(bundleDir, srcPath)
		if err != nil {
			return fmt.Errorf("compute relative path (path=%s) error: %w", srcPath, err)
		}
		name := root + e.opts.Mapping.Restore(pathcodec.ToArchive(rel))

		var fi fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			fi, err = os.Stat(srcPath)
		} else {
			fi, err = d.Info()
		}
		if err != nil {
			return fmt.Errorf("describe file (path=%s) error: %w", srcPath, err)
		}

		switch {
		case fi.IsDir():
			if _, err = zw.CreateHeader(dirHeader(name+"/", fi.ModTime())); err != nil {
				return fmt.Errorf("create zip record (name=%s) for directory (path=%s) error: %w", name, srcPath, err)
			}

			logger.Debug("added directory", slog.String("name", name+"/"))
			e.report(srcPath, name+"/", 0, true)
			return nil

		case fi.Mode().IsRegular():
			return e.addFile(ctx, zw, srcPath, name, fi, buf, logger)

		default:
			logger.Debug("skipped irregular file", slog.String("path", srcPath), slog.String("mode", fi.Mode().String()))
			return nil
		}
	})
}

// addFile adds a single file entry and streams its content.
func (e *Engine) addFile(ctx context.Context, zw *zip.Writer, srcPath, name string, fi fs.FileInfo, buf []byte, logger *slog.Logger) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open file (path=%s) error: %w", srcPath, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(fileHeader(name, fi.ModTime()))
	if err != nil {
		return fmt.Errorf("create zip record (name=%s) for file (path=%s) error: %w", name, srcPath, err)
	}

	written, err := copyFile(ctx, w, src, buf, e.reportFn(srcPath, name))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		return fmt.Errorf("add file (path=%s) to archive file (name=%s) error: %w", srcPath, name, err)
	}

	logger.Debug("added file", slog.String("name", name), slog.Int64("size", written))
	e.report(srcPath, name, written, true)
	return nil
}
