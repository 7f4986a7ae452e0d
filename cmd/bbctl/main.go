// Package main is the entry point for the bbctl CLI.
package main

import (
	"os"

	"budgetbook/cmd/bbctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
