// Package main provides the entry point for the episearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/raphi011/episearch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
