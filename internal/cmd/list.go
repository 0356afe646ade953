package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/ipa"
	"github.com/nguyengg/ipa/internal"
)

type List struct {
	LegacyEncoding string `long:"legacy-encoding" description:"encoding of entry names not flagged as UTF-8, e.g. cp437 or Shift_JIS; overrides [unzip] legacy-encoding" value-name:"encoding"`
	Args           struct {
		Archives []flags.Filename `positional-arg-name:"archive" description:"the .ipa files to be listed" required:"yes"`
	} `positional-args:"yes"`

	globals globals
}

func (c *List) setGlobals(g globals) {
	c.globals = g
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	enc, err := c.globals.loader.LegacyEncoding(c.LegacyEncoding)
	if err != nil {
		return err
	}

	e := ipa.New(func(opts *ipa.Options) {
		opts.Logger = c.globals.logger
		opts.LegacyEncoding = enc
	})

	n := len(c.Args.Archives)
	for i, archive := range c.Args.Archives {
		logger := internal.NewLogger(i, n, archive)

		entries, err := e.List(context.Background(), string(archive))
		if err != nil {
			logger.Printf("list error: %v", err)
			continue
		}

		printEntries(os.Stdout, entries)
		logger.Printf("%d entries (%s)", len(entries), humanize.IBytes(uint64(ipa.TotalUncompressedSize(entries))))
	}

	return nil
}

// printEntries writes one line per entry in the form "mode size modified name".
func printEntries(w io.Writer, entries []ipa.ArchiveEntry) {
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s %10s %s %s\n",
			entryMode(e),
			humanize.IBytes(e.UncompressedSize),
			e.Modified.Local().Format(time.DateTime),
			e.Name)
	}
}

// entryMode converts the entry's st_mode into fs.FileMode for display.
func entryMode(e ipa.ArchiveEntry) fs.FileMode {
	mode := fs.FileMode(e.UnixMode & 0777)
	if e.IsDir {
		mode |= fs.ModeDir
	}

	return mode
}
