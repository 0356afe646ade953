// Package pathcodec maps characters that are legal in archive entry names but illegal on the target filesystem to
// textual placeholders, and back.
//
// The mapping is applied on extraction (archive name to filesystem path, see [Mapping.Sanitize]) and in reverse on
// archiving (filesystem path to archive name, see [Mapping.Restore]) so that a path round-tripped through
// extract-then-archive is byte-identical.
//
// Separator conversion is a distinct step ([ToNative] and [ToArchive]) that callers apply before or after the mapping.
//
// Sanitize is only injective over paths for which [Mapping.Reversible] holds. Underscores next to a literal can join
// with its placeholder, so with [Colon] both "__colon_:" and ":_colon__" sanitize to "__colon___colon__", and Restore
// can only give back the second one. Callers that care should check Reversible before extracting.
package pathcodec

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"
)

// Pair is a single literal character and its placeholder.
type Pair struct {
	Literal     string
	Placeholder string
}

// Mapping is an ordered list of Pair that can sanitize and restore paths.
//
// The zero value is the identity mapping.
type Mapping struct {
	name     string
	pairs    []Pair
	sanitize *strings.Replacer
	restore  *strings.Replacer
}

// New creates a named Mapping after validating that the pairs keep the mapping reversible.
//
// Every literal must be a single character, and every placeholder must be non-empty, must not contain any literal, and
// must not be a substring of another placeholder.
func New(name string, pairs ...Pair) (Mapping, error) {
	sanitize := make([]string, 0, 2*len(pairs))
	restore := make([]string, 0, 2*len(pairs))

	for i, p := range pairs {
		if utf8.RuneCountInString(p.Literal) != 1 {
			return Mapping{}, fmt.Errorf("literal %q must be exactly one character", p.Literal)
		}
		if p.Placeholder == "" {
			return Mapping{}, fmt.Errorf("placeholder for literal %q must not be empty", p.Literal)
		}

		for j, q := range pairs {
			if strings.Contains(p.Placeholder, q.Literal) {
				return Mapping{}, fmt.Errorf("placeholder %q must not contain literal %q", p.Placeholder, q.Literal)
			}
			if i == j {
				continue
			}
			if p.Literal == q.Literal {
				return Mapping{}, fmt.Errorf("literal %q is mapped more than once", p.Literal)
			}
			if strings.Contains(p.Placeholder, q.Placeholder) {
				return Mapping{}, fmt.Errorf("placeholder %q overlaps with placeholder %q", p.Placeholder, q.Placeholder)
			}
		}

		sanitize = append(sanitize, p.Literal, p.Placeholder)
		restore = append(restore, p.Placeholder, p.Literal)
	}

	return Mapping{
		name:     name,
		pairs:    append([]Pair(nil), pairs...),
		sanitize: strings.NewReplacer(sanitize...),
		restore:  strings.NewReplacer(restore...),
	}, nil
}

// MustNew is a variant of New that panics on error.
func MustNew(name string, pairs ...Pair) Mapping {
	m, err := New(name, pairs...)
	if err != nil {
		panic(err)
	}

	return m
}

// Name returns the name given to New.
func (m Mapping) Name() string {
	if m.name == "" {
		return "none"
	}

	return m.name
}

// Pairs returns a copy of the pairs in order.
func (m Mapping) Pairs() []Pair {
	return append([]Pair(nil), m.pairs...)
}

// Sanitize replaces every literal in path with its placeholder.
func (m Mapping) Sanitize(path string) string {
	if m.sanitize == nil {
		return path
	}

	return m.sanitize.Replace(path)
}

// Restore replaces every placeholder in path with its literal.
func (m Mapping) Restore(path string) string {
	if m.restore == nil {
		return path
	}

	return m.restore.Replace(path)
}

// ContainsPlaceholder returns true if path contains any of the placeholders.
//
// Such paths are not guaranteed to survive Sanitize then Restore unchanged.
func (m Mapping) ContainsPlaceholder(path string) bool {
	for _, p := range m.pairs {
		if strings.Contains(path, p.Placeholder) {
			return true
		}
	}

	return false
}

// Reversible returns true if Restore(Sanitize(path)) == path.
//
// Besides paths that already contain a placeholder, a path can also be irreversible if the text right before a
// literal combines with the start of its placeholder to form another placeholder, for example "__lt" followed by ':'
// with the Windows mapping sanitizes to "__lt__colon__".
func (m Mapping) Reversible(path string) bool {
	return m.Restore(m.Sanitize(path)) == path
}

var (
	// None is the identity mapping.
	None = Mapping{}

	// Colon only maps ':' which is the one character that HFS+/APFS bundles commonly carry but Windows rejects.
	Colon = MustNew("posix", Pair{":", "__colon__"})

	// Windows maps every printable character that Windows rejects in file names.
	Windows = MustNew("windows",
		Pair{":", "__colon__"},
		Pair{"<", "__lt__"},
		Pair{">", "__gt__"},
		Pair{`"`, "__quot__"},
		Pair{"|", "__pipe__"},
		Pair{"?", "__qmark__"},
		Pair{"*", "__star__"})
)

// Default returns Windows when running on Windows, Colon otherwise.
func Default() Mapping {
	if runtime.GOOS == "windows" {
		return Windows
	}

	return Colon
}

// ForTarget returns the mapping by its target filesystem name: "posix", "windows", or "none".
//
// An empty target returns Default.
func ForTarget(target string) (Mapping, error) {
	switch strings.ToLower(target) {
	case "":
		return Default(), nil
	case "posix":
		return Colon, nil
	case "windows":
		return Windows, nil
	case "none":
		return None, nil
	default:
		return Mapping{}, fmt.Errorf("unknown target filesystem %q", target)
	}
}

// ToNative converts an archive name that uses '/' separators to the native separator.
func ToNative(name string) string {
	return filepath.FromSlash(name)
}

// ToArchive converts a native path to use '/' separators.
func ToArchive(path string) string {
	return filepath.ToSlash(path)
}
