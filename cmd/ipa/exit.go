//go:build !windows

package main

import "os"

func exit(code int) {
	if code != 0 {
		os.Exit(code)
	}
}
