// Package main is the entry point for the regtest CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/regtest/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
