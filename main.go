// Package main is the entry point for modsecdb.
package main

import (
	"os"

	"modsecdb/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
