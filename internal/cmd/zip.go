package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/ipa"
	"github.com/nguyengg/ipa/internal"
	"github.com/nguyengg/ipa/util"
)

type Zip struct {
	Output flags.Filename `short:"o" long:"output" description:"path of the archive; only valid when archiving a single bundle. By default, MyApp.app becomes MyApp.ipa next to it" value-name:"file"`
	Level  *int           `short:"l" long:"level" description:"deflate compression level from -2 (Huffman only) to 9 (best compression); overrides [zip] level"`
	Target string         `long:"target" choice:"posix" choice:"windows" choice:"none" description:"filesystem whose placeholders are restored in entry names; overrides [codec] target"`
	Args   struct {
		Bundles []flags.Filename `positional-arg-name:"bundle" description:"the app bundle directories to be archived" required:"yes"`
	} `positional-args:"yes"`

	globals globals
	logger *log.Logger
}

func (c *Zip) setGlobals(g globals) {
	c.globals = g
}

func (c *Zip) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	n := len(c.Args.Bundles)
	if c.Output != "" && n != 1 {
		return fmt.Errorf("--output can only be used with a single bundle, got %d", n)
	}

	optFns, err := c.options()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	for i, bundle := range c.Args.Bundles {
		c.logger = internal.NewLogger(i, n, bundle)
		c.logger.Printf("start archiving")

		if err = c.zip(ctx, string(bundle), optFns); err == nil {
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		c.logger.Printf("archive error: %v", err)
	}

	log.Printf("successfully archived %d/%d bundles", success, n)
	return nil
}

// options resolves the engine options from flags and config.
func (c *Zip) options() ([]func(*ipa.Options), error) {
	m, err := c.globals.loader.Mapping(c.Target)
	if err != nil {
		return nil, err
	}

	zc, err := c.globals.loader.ForZip()
	if err != nil {
		return nil, err
	}

	level := zc.Level
	if c.Level != nil {
		if *c.Level < -2 || *c.Level > 9 {
			return nil, fmt.Errorf("invalid --level %d", *c.Level)
		}

		level = c.Level
	}

	return []func(*ipa.Options){func(opts *ipa.Options) {
		opts.Logger = c.globals.logger
		opts.Mapping = m
		if level != nil {
			opts.CompressionLevel = *level
		}
		if zc.BufferSize > 0 {
			opts.BufferSize = zc.BufferSize
		}
	}}, nil
}

func (c *Zip) zip(ctx context.Context, bundle string, optFns []func(*ipa.Options)) error {
	count, size, err := ipa.CountDirContents(ctx, bundle)
	if err != nil {
		return fmt.Errorf("count files in bundle error: %w", err)
	}

	name, err := ipa.New(append(optFns, func(opts *ipa.Options) {
		opts.ProgressReporter = internal.NewProgressReporter(c.logger, size, "archiving")
	})...).Zip(ctx, bundle, string(c.Output))
	if err != nil {
		return err
	}

	fi, err := os.Stat(name)
	if err != nil {
		return fmt.Errorf("stat archive error: %w", err)
	}

	c.logger.Printf("archived %d files (%s) to %s (%s)", count, humanize.IBytes(uint64(size)), util.DirBase(name), humanize.IBytes(uint64(fi.Size())))
	return nil
}
