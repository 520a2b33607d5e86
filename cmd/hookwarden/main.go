// Package main is the entry point for the hookwarden CLI binary.
package main

import (
	"os"

	"github.com/irahardianto/hookwarden/cmd/hookwarden/commands"
)

func main() {
	os.Exit(commands.Execute())
}
