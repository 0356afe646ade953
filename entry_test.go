package ipa

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestHeaders(t *testing.T) {
	modTime := time.Date(2024, time.March, 9, 14, 30, 10, 0, time.Local)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	_, err := zw.CreateHeader(dirHeader("Payload/MyApp.app/Base.lproj/", modTime))
	require.NoError(t, err)

	w, err := zw.CreateHeader(fileHeader("Payload/MyApp.app/Info.plist", modTime))
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	dir := NewArchiveEntry(zr.File[0], nil)
	assert.Equal(t, ArchiveEntry{
		Name:             "Payload/MyApp.app/Base.lproj/",
		IsDir:            true,
		UncompressedSize: 0,
		Modified:         dir.Modified,
		UnixMode:         040755,
		IsUTF8:           true,
	}, dir)
	assert.Equal(t, zip.Store, zr.File[0].Method)
	assert.WithinDuration(t, modTime, dir.Modified, 2*time.Second)

	file := NewArchiveEntry(zr.File[1], nil)
	assert.Equal(t, ArchiveEntry{
		Name:             "Payload/MyApp.app/Info.plist",
		IsDir:            false,
		UncompressedSize: 10,
		Modified:         file.Modified,
		UnixMode:         0100644,
		IsUTF8:           true,
	}, file)
	assert.Equal(t, zip.Deflate, zr.File[1].Method)
	assert.WithinDuration(t, modTime, file.Modified, 2*time.Second)

	// MS-DOS fields carry the local wall clock.
	assert.Equal(t, uint16((2024-1980)<<9|3<<5|9), zr.File[1].ModifiedDate)
	assert.Equal(t, uint16(14<<11|30<<5|10/2), zr.File[1].ModifiedTime)
}

func TestNewArchiveEntry_LegacyName(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// 0x81 is 'ü' in code page 437 and is not valid UTF-8 on its own.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "Payload/M\x81nchen.app/Info.plist", NonUTF8: true})
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	raw := NewArchiveEntry(zr.File[0], nil)
	assert.Equal(t, "Payload/M\x81nchen.app/Info.plist", raw.Name)
	assert.False(t, raw.IsUTF8)

	decoded := NewArchiveEntry(zr.File[0], charmap.CodePage437)
	assert.Equal(t, "Payload/München.app/Info.plist", decoded.Name)
}

func TestModTime(t *testing.T) {
	wall := time.Date(2024, time.March, 9, 14, 30, 10, 0, time.UTC)
	instant := time.Date(2024, time.March, 9, 14, 30, 10, 0, time.FixedZone("", -8*60*60))

	tests := []struct {
		name string
		fh   *zip.FileHeader
		want time.Time
	}{
		{
			name: "MS-DOS fields only",
			fh:   &zip.FileHeader{Modified: wall},
			want: time.Date(2024, time.March, 9, 14, 30, 10, 0, time.Local),
		},
		{
			name: "extended timestamp",
			fh:   &zip.FileHeader{Modified: instant, Extra: []byte{0x55, 0x54, 5, 0, 1, 0, 0, 0, 0}},
			want: instant,
		},
		{
			name: "extended timestamp after another field",
			fh:   &zip.FileHeader{Modified: instant, Extra: []byte{0x75, 0x78, 1, 0, 1, 0x55, 0x54, 5, 0, 1, 0, 0, 0, 0}},
			want: instant,
		},
		{
			name: "truncated extra field",
			fh:   &zip.FileHeader{Modified: wall, Extra: []byte{0x55, 0x54, 5, 0, 1}},
			want: time.Date(2024, time.March, 9, 14, 30, 10, 0, time.Local),
		},
		{
			name: "zero",
			fh:   &zip.FileHeader{},
			want: time.Time{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := modTime(tt.fh)
			assert.Truef(t, tt.want.Equal(got), "modTime() got = %v, want = %v", got, tt.want)
		})
	}
}

func TestNewArchiveEntry_LocalTime(t *testing.T) {
	dir, err := os.MkdirTemp("", "ipa-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	archivePath := filepath.Join(dir, "MyApp.ipa")
	writeArchive(t, archivePath, rawEntry{name: "Payload/MyApp.app/Info.plist", data: "plist"})

	entries, err := New().List(context.Background(), archivePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Truef(t, time.Date(2024, time.March, 9, 14, 30, 10, 0, time.Local).Equal(entries[0].Modified), "Modified got = %v", entries[0].Modified)
}

func TestUnixMode(t *testing.T) {
	assert.Equal(t, uint32(0100644), unixMode(FileMode))
	assert.Equal(t, uint32(040755), unixMode(DirMode))
}

func TestIsResourceFork(t *testing.T) {
	assert.True(t, isResourceFork("__MACOSX/"))
	assert.True(t, isResourceFork("__MACOSX/Payload/._MyApp.app"))
	assert.False(t, isResourceFork("Payload/__MACOSX/a.txt"))
	assert.False(t, isResourceFork("Payload/MyApp.app/Info.plist"))
}
