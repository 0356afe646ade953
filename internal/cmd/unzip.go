package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/ipa"
	"github.com/nguyengg/ipa/internal"
	"github.com/nguyengg/ipa/util"
)

type Unzip struct {
	Dir            flags.Filename `short:"d" long:"dir" description:"directory to extract into, created if necessary. By default, a new directory named after each archive is created in the working directory" value-name:"dir"`
	Target         string         `long:"target" choice:"posix" choice:"windows" choice:"none" description:"filesystem to sanitize entry names for; overrides [codec] target"`
	LegacyEncoding string         `long:"legacy-encoding" description:"encoding of entry names not flagged as UTF-8, e.g. cp437 or Shift_JIS; overrides [unzip] legacy-encoding" value-name:"encoding"`
	Args           struct {
		Archives []flags.Filename `positional-arg-name:"archive" description:"the .ipa files to be extracted" required:"yes"`
	} `positional-args:"yes"`

	globals globals
	logger *log.Logger
}

func (c *Unzip) setGlobals(g globals) {
	c.globals = g
}

func (c *Unzip) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	m, err := c.globals.loader.Mapping(c.Target)
	if err != nil {
		return err
	}

	enc, err := c.globals.loader.LegacyEncoding(c.LegacyEncoding)
	if err != nil {
		return err
	}

	optFn := func(opts *ipa.Options) {
		opts.Logger = c.globals.logger
		opts.Mapping = m
		opts.LegacyEncoding = enc
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Archives)
	for i, archive := range c.Args.Archives {
		c.logger = internal.NewLogger(i, n, archive)
		c.logger.Printf("start extracting")

		if err = c.unzip(ctx, string(archive), optFn); err == nil {
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		c.logger.Printf("extract error: %v", err)
	}

	log.Printf("successfully extracted %d/%d archives", success, n)
	return nil
}

func (c *Unzip) unzip(ctx context.Context, name string, optFn func(*ipa.Options)) error {
	entries, err := ipa.New(optFn).List(ctx, name)
	if err != nil {
		return err
	}
	size := ipa.TotalUncompressedSize(entries)

	output, created, err := c.outputDir(name)
	if err != nil {
		return err
	}

	bundle, err := ipa.New(optFn, func(opts *ipa.Options) {
		opts.ProgressReporter = internal.NewProgressReporter(c.logger, size, "extracting")
	}).Unzip(ctx, name, output)
	if err != nil {
		if created && !errors.Is(err, ipa.ErrMissingAppBundle) {
			_ = os.RemoveAll(output)
		}

		return err
	}

	c.logger.Printf("extracted %d entries (%s) to %s", len(entries), humanize.IBytes(uint64(size)), util.DirBase(bundle))
	return nil
}

// outputDir returns the directory to extract the named archive into.
//
// If --dir is not given, a new directory is created in the working directory; created is true in that case.
func (c *Unzip) outputDir(name string) (output string, created bool, err error) {
	if c.Dir != "" {
		if err = os.MkdirAll(string(c.Dir), 0755); err != nil {
			return "", false, fmt.Errorf("create output directory error: %w", err)
		}

		return string(c.Dir), false, nil
	}

	base := filepath.Base(name)
	if output, err = util.MkExclDir(".", strings.TrimSuffix(base, filepath.Ext(base)), 0755); err != nil {
		return "", false, err
	}

	return output, true, nil
}
