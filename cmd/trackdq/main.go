// Package main is the entry point for the trackdq binary.
package main

import (
	"os"

	"trackdq/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
