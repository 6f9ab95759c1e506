package main

import (
	"fmt"
	"os"

	"raceplan/internal/cli"
)

var version = "dev"

func main() {
	rootCmd := cli.NewRootCmd()
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
