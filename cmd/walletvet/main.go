// Package main is the entry point for the walletvet CLI.
package main

import (
	"os"

	"github.com/walletvet/walletvet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
