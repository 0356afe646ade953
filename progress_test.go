package ipa

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountDirContents(t *testing.T) {
	dir, err := os.MkdirTemp("", "ipa-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	fill(t, dir, map[string]string{
		"Info.plist":          "0123456789",
		"Base.lproj/Main.nib": "nib",
		"Empty/":              "",
		"_CodeSignature/none": "",
	})

	n, size, err := CountDirContents(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(13), size)
}

func TestTotalUncompressedSize(t *testing.T) {
	assert.Equal(t, int64(0), TotalUncompressedSize(nil))
	assert.Equal(t, int64(15), TotalUncompressedSize([]ArchiveEntry{
		{Name: "Payload/MyApp.app/", IsDir: true},
		{Name: "Payload/MyApp.app/Info.plist", UncompressedSize: 10},
		{Name: "Payload/MyApp.app/PkgInfo", UncompressedSize: 5},
	}))
}

func TestNewProgressBarReporter(t *testing.T) {
	dir, err := os.MkdirTemp("", "ipa-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	bundleDir := filepath.Join(dir, "MyApp.app")
	fill(t, bundleDir, map[string]string{
		"Info.plist": "0123456789",
		"PkgInfo":    "APPL????",
	})

	_, size, err := CountDirContents(context.Background(), bundleDir)
	require.NoError(t, err)

	bar := progressbar.NewOptions64(size, progressbar.OptionSetWriter(nopWriter{}))
	_, err = New(func(opts *Options) {
		opts.BufferSize = 4
		opts.ProgressReporter = NewProgressBarReporter(bar)
	}).Zip(context.Background(), bundleDir, "")
	require.NoError(t, err)

	assert.Equal(t, size, bar.State().CurrentNum)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func TestLogProgressReporter(t *testing.T) {
	var records []record
	logger := slog.New(NewLogFuncHandler("", func(level slog.Level, message string) {
		records = append(records, record{level, message})
	}))

	r := LogProgressReporter(logger)
	r("MyApp.app/Info.plist", "Payload/MyApp.app/Info.plist", 5, false)
	r("MyApp.app/Info.plist", "Payload/MyApp.app/Info.plist", 10, true)

	assert.Equal(t, []record{
		{slog.LevelDebug, "copied entry src=MyApp.app/Info.plist dst=Payload/MyApp.app/Info.plist size=10"},
	}, records)
}
