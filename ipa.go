// Package ipa converts between an application bundle directory (e.g. "MyApp.app") and an IPA archive, which is a zip
// file whose entries live under "Payload/MyApp.app/".
//
// Entry names are mapped with a [pathcodec.Mapping] so that characters legal in bundles but illegal on the local
// filesystem (':' at the very least) survive a round trip: [Engine.Unzip] sanitizes them into placeholders and
// [Engine.Zip] restores them.
//
// All operations are synchronous and open at most one archive handle and one entry stream at a time. Failures are
// reported as *Error values whose Kind classifies the failure; detailed diagnostics go to [Options.Logger].
package ipa

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/nguyengg/ipa/pathcodec"
	"golang.org/x/text/encoding"
)

const (
	// Ext is the extension of the archives created by Engine.Zip.
	Ext = ".ipa"

	// PayloadDir is the top-level directory of every IPA archive.
	PayloadDir = "Payload"
)

// Options customises Engine.
type Options struct {
	// Logger receives entry-level diagnostics.
	//
	// Default to a logger that discards everything. See WithLogFunc to forward records to a callback.
	Logger *slog.Logger

	// Mapping sanitizes entry names on extraction and restores them on archiving.
	//
	// Default to pathcodec.Default.
	Mapping pathcodec.Mapping

	// BufferSize is the length of the buffer being used for copying entries.
	//
	// BufferSize indirectly controls how frequently ProgressReporter is called; after each copy is done,
	// ProgressReporter is called once.
	//
	// Default to DefaultBufferSize.
	BufferSize int

	// CompressionLevel is the deflate level of file entries, see [flate.NewWriter] on the acceptable levels.
	//
	// Default to flate.DefaultCompression.
	CompressionLevel int

	// LegacyEncoding decodes the names of entries that do not have the language encoding flag set.
	//
	// By default, such names are used as raw bytes. Set to charmap.CodePage437 to follow the zip specification
	// strictly.
	LegacyEncoding encoding.Encoding

	// ProgressReporter controls how progress is reported.
	//
	// By default, there is no progress report.
	ProgressReporter ProgressReporter
}

// Engine archives bundles and extracts archives.
//
// An Engine holds no state between calls and can be shared, but concurrent operations on the same archive or output
// directory are undefined.
type Engine struct {
	opts Options
}

// New returns a new Engine with customisation options.
func New(optFns ...func(*Options)) *Engine {
	opts := Options{
		Logger:           slog.New(slog.DiscardHandler),
		Mapping:          pathcodec.Default(),
		BufferSize:       DefaultBufferSize,
		CompressionLevel: flate.DefaultCompression,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	return &Engine{opts: opts}
}

// ZipApp archives bundleDirectory into archivePath using a new Engine.
//
// If archivePath is empty, ArchivePath is used to derive it. See Engine.Zip.
func ZipApp(bundleDirectory, archivePath string, optFns ...func(*Options)) error {
	_, err := New(optFns...).Zip(context.Background(), bundleDirectory, archivePath)
	return err
}

// UnzipApp extracts archivePath into outputDirectory, which must already exist, using a new Engine.
//
// See Engine.Unzip.
func UnzipApp(archivePath, outputDirectory string, optFns ...func(*Options)) error {
	_, err := New(optFns...).Unzip(context.Background(), archivePath, outputDirectory)
	return err
}

// ArchivePath returns the default archive path of a bundle: a sibling file with the bundle's extension replaced by Ext.
//
// bundleDir is made absolute first. For example, "path/to/MyApp.app" becomes "$PWD/path/to/MyApp.ipa", and "." from
// inside "/tmp/MyApp.app" becomes "/tmp/MyApp.ipa".
func ArchivePath(bundleDir string) string {
	if abs, err := filepath.Abs(bundleDir); err == nil {
		bundleDir = abs
	} else {
		bundleDir = filepath.Clean(bundleDir)
	}
	base := filepath.Base(bundleDir)
	return filepath.Join(filepath.Dir(bundleDir), strings.TrimSuffix(base, filepath.Ext(base))+Ext)
}

// newZipWriter creates a zip.Writer whose deflate compressor uses the configured level.
func (e *Engine) newZipWriter(w io.Writer) *zip.Writer {
	level := e.opts.CompressionLevel
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})
	return zw
}

// report calls the ProgressReporter if one is configured.
func (e *Engine) report(src, dst string, written int64, done bool) {
	if pr := e.opts.ProgressReporter; pr != nil {
		pr(src, dst, written, done)
	}
}

// reportFn returns a callback for copyEntry and copyFile, or nil if there is no ProgressReporter.
func (e *Engine) reportFn(src, dst string) func(int64) {
	pr := e.opts.ProgressReporter
	if pr == nil {
		return nil
	}

	return func(written int64) {
		pr(src, dst, written, false)
	}
}
