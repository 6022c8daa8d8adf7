package main

import (
	"fmt"
	"os"

	"volumecrop/cmd/volumecrop/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := cmd.NewRootCommand()
	root.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
