package main

import (
	"errors"
	"log"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/ipa/internal/cmd"
)

func main() {
	p, err := cmd.NewParser()
	if err != nil {
		log.Fatalf("create parser error: %v", err)
	}

	_, err = p.Parse()
	exit(exitCode(err))
}

// exitCode returns 2 for usage errors and 1 for any other error.
func exitCode(err error) int {
	var flagsErr *flags.Error

	switch {
	case err == nil, flags.WroteHelp(err):
		return 0
	case errors.As(err, &flagsErr):
		return 2
	default:
		return 1
	}
}
