package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file.
const Name = ".ipa"

// Loader can be used for loading .ipa configuration.
type Loader struct {
	cfg *ini.File
}

// Load will traverse the directory hierarchy upwards to find the first ".ipa" file available and load its contents
// into the Loader.
//
// The name of the .ipa file is returned, or an empty string if none was found in which case the Loader has no
// settings.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		path := filepath.Join(cur, Name)
		switch fi, err := os.Stat(path); {
		case err == nil && !fi.IsDir():
			return path, l.LoadFile(path)
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			l.cfg = ini.Empty()
			return "", nil
		}

		cur = parent
	}
}

// LoadFile loads the named file into the Loader.
func (l *Loader) LoadFile(name string) (err error) {
	if l.cfg, err = ini.Load(name); err != nil {
		l.cfg = ini.Empty()
	}

	return err
}

// section returns the named section, or nil if it does not exist.
func (l *Loader) section(name string) *ini.Section {
	if l.cfg == nil {
		return nil
	}

	sec, err := l.cfg.GetSection(name)
	if err != nil {
		return nil
	}

	return sec
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = &Loader{cfg: ini.Empty()}

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}
