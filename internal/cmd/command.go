package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/ipa/internal"
	"github.com/nguyengg/ipa/internal/config"
)

type Ipa struct {
	Verbose bool   `short:"v" long:"verbose" description:"log every entry being archived or extracted"`
	Config  string `long:"config" description:"path to the .ipa configuration file; by default, the first .ipa file found from the working directory upwards is used" value-name:"file"`
	Zip     Zip    `command:"zip" alias:"z" description:"archive app bundles into .ipa files"`
	Unzip   Unzip  `command:"unzip" alias:"x" description:"extract .ipa files"`
	List    List   `command:"list" alias:"ls" description:"list the entries of .ipa files"`
}

// globals is the state shared by all commands after global options have been parsed.
type globals struct {
	logger *slog.Logger
	loader *config.Loader
}

// configurable is implemented by commands that need globals.
type configurable interface {
	setGlobals(g globals)
}

func NewParser() (*flags.Parser, error) {
	opts := &Ipa{}

	p := flags.NewNamedParser("ipa", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}

		// each invocation replaces whatever an earlier one loaded into the DefaultLoader.
		loader := config.DefaultLoader
		if opts.Config != "" {
			if err := loader.LoadFile(opts.Config); err != nil {
				return fmt.Errorf("load config (path=%s) error: %w", opts.Config, err)
			}
		} else if name, err := config.Load(context.Background()); err != nil {
			return fmt.Errorf("load config error: %w", err)
		} else if name != "" && opts.Verbose {
			log.Printf("using config %s", name)
		}

		if c, ok := command.(configurable); ok {
			c.setGlobals(globals{
				logger: internal.NewEngineLogger(opts.Verbose),
				loader: loader,
			})
		}

		return command.Execute(args)
	}

	return p, nil
}
