// Package main provides the entry point for the docpack CLI.
package main

import (
	"os"

	"github.com/fluorite-labs/docpack/cmd/docpack/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
