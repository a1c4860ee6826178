// Package main is the entry point for the schemabridge CLI binary.
package main

import (
	"os"

	"schemabridge/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
