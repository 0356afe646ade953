package ipa

import (
	"archive/zip"
	"encoding/binary"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

const (
	// flagUTF8 is the language encoding flag (bit 11) of the general purpose bit flag.
	//
	// See section 4.4.4 of https://pkware.cachefly.net/webdocs/casestudies/APPNOTE.TXT.
	flagUTF8 = 0x800

	// creatorUnix is the "version made by" host system for Unix, whose external attributes carry st_mode in the upper 16
	// bits.
	creatorUnix = 3

	// FileMode is the fixed mode given to every file entry regardless of its permission on disk.
	//
	// Installers reject bundles whose files carry odd permission bits (e.g. from a Windows filesystem that reports
	// everything as 0666 or 0777), so the source permission is not copied.
	FileMode fs.FileMode = 0644
	// DirMode is the fixed mode given to every directory entry.
	DirMode = fs.ModeDir | 0755

	// macOSXPrefix is the prefix of resource fork shadow entries added by the macOS Archive Utility.
	macOSXPrefix = "__MACOSX"
)

// ArchiveEntry describes an entry in the archive.
type ArchiveEntry struct {
	// Name is the decoded name of the entry, always using '/' as separator. Directories end with '/'.
	Name string
	// IsDir is true if the entry is a directory.
	IsDir bool
	// UncompressedSize is the declared size of the entry's content.
	UncompressedSize uint64
	// Modified is the modification time of the entry.
	Modified time.Time
	// UnixMode is the st_mode value of the entry, e.g. 0100644 for a regular file and 040755 for a directory.
	UnixMode uint32
	// IsUTF8 is true if the entry has the language encoding flag set.
	IsUTF8 bool
}

// NewArchiveEntry decodes the metadata of the given zip.File.
//
// If the name is not UTF-8 and enc is given, enc is used to decode the raw name. Otherwise, the raw bytes are used as-is.
func NewArchiveEntry(f *zip.File, enc encoding.Encoding) ArchiveEntry {
	e := ArchiveEntry{
		Name:             decodeName(&f.FileHeader, enc),
		UncompressedSize: f.UncompressedSize64,
		Modified:         modTime(&f.FileHeader),
		IsUTF8:           f.Flags&flagUTF8 != 0,
	}
	e.IsDir = strings.HasSuffix(e.Name, "/")

	if f.CreatorVersion>>8 == creatorUnix {
		e.UnixMode = f.ExternalAttrs >> 16
	}
	if e.UnixMode == 0 {
		e.UnixMode = unixMode(f.Mode())
	}

	return e
}

// decodeName returns the name of the entry according to its language encoding flag.
func decodeName(fh *zip.FileHeader, enc encoding.Encoding) string {
	if fh.Flags&flagUTF8 != 0 || enc == nil || isASCII(fh.Name) {
		return fh.Name
	}

	// zip.Reader only sets NonUTF8 for names that cannot possibly be UTF-8; those without the flag are still legacy
	// encoded as far as the format is concerned.
	name, err := enc.NewDecoder().String(fh.Name)
	if err != nil || !utf8.ValidString(name) {
		return fh.Name
	}

	return name
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}

	return true
}

// isResourceFork returns true for __MACOSX shadow entries.
func isResourceFork(name string) bool {
	return strings.HasPrefix(name, macOSXPrefix)
}

// fileHeader creates the header for a file entry.
//
// The entry always has the language encoding flag set, uses deflate, carries the fixed FileMode, and stores modTime in
// local time since that is what the MS-DOS date and time fields represent.
func fileHeader(name string, modTime time.Time) *zip.FileHeader {
	fh := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Flags:    flagUTF8,
		Modified: modTime.Local(),
	}
	fh.SetMode(FileMode)
	return fh
}

// dirHeader creates the header for a directory entry; name must end with '/'.
func dirHeader(name string, modTime time.Time) *zip.FileHeader {
	fh := &zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Flags:    flagUTF8,
		Modified: modTime.Local(),
	}
	fh.SetMode(DirMode)
	return fh
}

// unixMode converts fs.FileMode to st_mode bits.
func unixMode(mode fs.FileMode) uint32 {
	const (
		sIFREG = 0100000
		sIFDIR = 040000
		sIFLNK = 0120000
	)

	m := uint32(mode.Perm())
	switch {
	case mode.IsDir():
		m |= sIFDIR
	case mode&fs.ModeSymlink != 0:
		m |= sIFLNK
	case mode.IsRegular():
		m |= sIFREG
	}

	return m
}

// extra field IDs that archive/zip reads an exact modification time from.
const (
	ntfsExtraID    = 0x000a
	unixExtraID    = 0x5855
	extTimeExtraID = 0x5455
)

// modTime returns the modification time of the entry.
//
// Without an extended timestamp, archive/zip reports the MS-DOS date and time fields as if they were UTC. Those fields
// hold the wall clock time of whoever created the archive, so they are reinterpreted in time.Local instead.
func modTime(fh *zip.FileHeader) time.Time {
	m := fh.Modified
	if m.IsZero() || hasExtendedTime(fh.Extra) {
		return m
	}

	return time.Date(m.Year(), m.Month(), m.Day(), m.Hour(), m.Minute(), m.Second(), m.Nanosecond(), time.Local)
}

// hasExtendedTime returns true if the extra fields contain one that carries a UTC modification time.
func hasExtendedTime(extra []byte) bool {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra)
		size := int(binary.LittleEndian.Uint16(extra[2:]))
		extra = extra[4:]
		if size > len(extra) {
			return false
		}

		switch id {
		case ntfsExtraID, unixExtraID, extTimeExtraID:
			return true
		}

		extra = extra[size:]
	}

	return false
}
