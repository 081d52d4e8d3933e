package main

import (
	"os"

	"covid-impact-pipeline/internal/cli"
)

// Starts the selector API; flags are those of `pipeline serve`.
func main() {
	args := append([]string{"serve"}, os.Args[1:]...)
	if err := cli.ExecuteArgs(args); err != nil {
		os.Exit(1)
	}
}
