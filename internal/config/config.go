package config

import (
	"fmt"
	"strings"

	"github.com/nguyengg/ipa/pathcodec"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// CodecConfig contains the [codec] settings.
type CodecConfig struct {
	// Target is the filesystem to sanitize names for, see pathcodec.ForTarget.
	Target string
}

// ForCodec returns the [codec] settings.
func (l *Loader) ForCodec() (c CodecConfig) {
	if sec := l.section("codec"); sec != nil {
		c.Target = sec.Key("target").String()
	}

	return
}

// Mapping returns the path mapping for the given target, falling back to the configured target if the argument is
// empty.
func (l *Loader) Mapping(target string) (pathcodec.Mapping, error) {
	if target == "" {
		target = l.ForCodec().Target
	}

	return pathcodec.ForTarget(target)
}

// ZipConfig contains the [zip] settings.
type ZipConfig struct {
	// Level is the deflate compression level, nil if not configured.
	Level *int
	// BufferSize is the copy buffer size in bytes, 0 if not configured.
	BufferSize int
}

// ForZip returns the [zip] settings.
func (l *Loader) ForZip() (c ZipConfig, err error) {
	sec := l.section("zip")
	if sec == nil {
		return
	}

	if k := sec.Key("level"); k.String() != "" {
		v, err := k.Int()
		if err != nil || v < -2 || v > 9 {
			return c, fmt.Errorf("invalid [zip] level (value=%s)", k.String())
		}

		c.Level = &v
	}

	if k := sec.Key("buffer-size"); k.String() != "" {
		if c.BufferSize, err = k.Int(); err != nil || c.BufferSize <= 0 {
			return c, fmt.Errorf("invalid [zip] buffer-size (value=%s)", k.String())
		}
	}

	return
}

// UnzipConfig contains the [unzip] settings.
type UnzipConfig struct {
	// LegacyEncoding is the name of the encoding of entry names that are not flagged as UTF-8.
	LegacyEncoding string
}

// ForUnzip returns the [unzip] settings.
func (l *Loader) ForUnzip() (c UnzipConfig) {
	if sec := l.section("unzip"); sec != nil {
		c.LegacyEncoding = sec.Key("legacy-encoding").String()
	}

	return
}

// LegacyEncoding returns the encoding for the given name, falling back to the configured encoding if the argument is
// empty.
//
// Returns nil if the resolved name is empty or "none".
func (l *Loader) LegacyEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		name = l.ForUnzip().LegacyEncoding
	}

	return ParseEncoding(name)
}

// ParseEncoding returns the encoding by its IANA name or alias, e.g. "cp437" or "Shift_JIS".
//
// Returns nil if name is empty or "none".
func ParseEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "cp437", "ibm437", "437":
		return charmap.CodePage437, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}

	return enc, nil
}
