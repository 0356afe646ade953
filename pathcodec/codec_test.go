package pathcodec

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapping_SanitizeRestore(t *testing.T) {
	tests := []struct {
		name      string
		mapping   Mapping
		path      string
		sanitized string
	}{
		{
			name:      "colon in file name",
			mapping:   Colon,
			path:      "Payload/MyApp.app/en.lproj/Main:Storyboard.nib",
			sanitized: "Payload/MyApp.app/en.lproj/Main__colon__Storyboard.nib",
		},
		{
			name:      "posix leaves other characters alone",
			mapping:   Colon,
			path:      `a<b>c"d|e?f*g:h`,
			sanitized: `a<b>c"d|e?f*g__colon__h`,
		},
		{
			name:      "windows maps every reserved character",
			mapping:   Windows,
			path:      `a<b>c"d|e?f*g:h`,
			sanitized: "a__lt__b__gt__c__quot__d__pipe__e__qmark__f__star__g__colon__h",
		},
		{
			name:      "adjacent literals",
			mapping:   Windows,
			path:      "::<>",
			sanitized: "__colon____colon____lt____gt__",
		},
		{
			name:      "none is identity",
			mapping:   None,
			path:      "a:b*c",
			sanitized: "a:b*c",
		},
		{
			name:      "nothing to map",
			mapping:   Windows,
			path:      "Payload/MyApp.app/Info.plist",
			sanitized: "Payload/MyApp.app/Info.plist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mapping.Sanitize(tt.path)
			assert.Equalf(t, tt.sanitized, got, "Sanitize(%q) got = %v, want = %v", tt.path, got, tt.sanitized)

			got = tt.mapping.Restore(got)
			assert.Equalf(t, tt.path, got, "Restore(Sanitize(%q)) got = %v, want = %v", tt.path, got, tt.path)
			assert.Truef(t, tt.mapping.Reversible(tt.path), "Reversible(%q) got = false, want = true", tt.path)
		})
	}
}

func TestMapping_Injective(t *testing.T) {
	// distinct inputs may only share a sanitized output if Reversible reports all but one of them.
	alphabet := []string{"a", "c", "_", ".", "/", ":", "<", ">", `"`, "|", "?", "*", "__colon_", "_colon__", "__lt_"}

	set := map[string]bool{"": true}
	prev := []string{""}
	for range 3 {
		next := make([]string, 0, len(prev)*len(alphabet))
		for _, prefix := range prev {
			for _, c := range alphabet {
				next = append(next, prefix+c)
				set[prefix+c] = true
			}
		}
		prev = next
	}

	for _, m := range []Mapping{Colon, Windows} {
		groups := make(map[string][]string, len(set))
		for in := range set {
			out := m.Sanitize(in)
			groups[out] = append(groups[out], in)

			if !strings.Contains(in, "_") {
				assert.Truef(t, m.Reversible(in), "%s: Reversible(%q) got = false, want = true", m.Name(), in)
			}
		}

		collisions := 0
		for out, ins := range groups {
			if len(ins) == 1 {
				continue
			}

			collisions++
			var reversible []string
			for _, in := range ins {
				if m.Reversible(in) {
					reversible = append(reversible, in)
				}
			}
			if len(reversible) > 1 {
				t.Fatalf("%s: reversible inputs %q all sanitize to %q", m.Name(), reversible, out)
			}
		}
		assert.NotZerof(t, collisions, "%s: expected underscores to produce at least one collision", m.Name())
	}
}

func TestMapping_Collision(t *testing.T) {
	a, b := "__colon_:", ":_colon__"

	assert.Equal(t, "__colon___colon__", Colon.Sanitize(a))
	assert.Equal(t, "__colon___colon__", Colon.Sanitize(b))
	assert.Equal(t, b, Colon.Restore(Colon.Sanitize(a)))

	assert.False(t, Colon.Reversible(a), "input that collides with another must not be reversible")
	assert.True(t, Colon.Reversible(b))
}

func TestMapping_Reversible(t *testing.T) {
	assert.False(t, Colon.Reversible("a__colon__b"), "path with placeholder must not be reversible")
	assert.False(t, Windows.Reversible("__lt:"), "placeholder formed across a literal must not be reversible")
	assert.True(t, Windows.Reversible("lt:gt"))

	assert.True(t, Colon.ContainsPlaceholder("a__colon__b"))
	assert.False(t, Colon.ContainsPlaceholder("a:b"))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []Pair
		wantErr bool
	}{
		{
			name:  "valid",
			pairs: []Pair{{":", "{colon}"}, {"*", "{star}"}},
		},
		{
			name:    "multi-character literal",
			pairs:   []Pair{{"ab", "{ab}"}},
			wantErr: true,
		},
		{
			name:    "empty placeholder",
			pairs:   []Pair{{":", ""}},
			wantErr: true,
		},
		{
			name:    "duplicate literal",
			pairs:   []Pair{{":", "{a}"}, {":", "{b}"}},
			wantErr: true,
		},
		{
			name:    "placeholder is substring of another",
			pairs:   []Pair{{":", "_c_"}, {"*", "x_c_x"}},
			wantErr: true,
		},
		{
			name:    "placeholder contains a literal",
			pairs:   []Pair{{":", "a*b"}, {"*", "{star}"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.name, tt.pairs...)
			if tt.wantErr {
				assert.Errorf(t, err, "New(%v) expected error", tt.pairs)
			} else {
				assert.NoErrorf(t, err, "New(%v) error = %v", tt.pairs, err)
			}
		})
	}
}

func TestForTarget(t *testing.T) {
	for target, want := range map[string]string{
		"posix":   "posix",
		"WINDOWS": "windows",
		"none":    "none",
		"":        Default().Name(),
	} {
		m, err := ForTarget(target)
		assert.NoErrorf(t, err, "ForTarget(%q) error = %v", target, err)
		assert.Equalf(t, want, m.Name(), "ForTarget(%q) got = %v, want = %v", target, m.Name(), want)
	}

	_, err := ForTarget("ntfs")
	assert.Error(t, err)
}

func TestSeparators(t *testing.T) {
	name := "Payload/MyApp.app/Base.lproj/Main.nib"
	native := ToNative(name)
	assert.Equal(t, filepath.Join("Payload", "MyApp.app", "Base.lproj", "Main.nib"), native)
	assert.Equal(t, name, ToArchive(native))
}
