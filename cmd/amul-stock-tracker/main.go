// Package main is the entry point for the amul-stock-tracker.
package main

import (
	"os"

	"github.com/donaldgifford/amul-stock-tracker/cmd/amul-stock-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
