// Package main is the entry point for the flexquery CLI tool.
package main

import (
	"os"

	"github.com/Aleph-Alpha/flexquery/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
