// Package main provides the weatherodds command-line client.
package main

import (
	"fmt"
	"os"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd(defaultServiceFactory).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
