package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err, OutputFormat(formatFlag)))
		os.Exit(1)
	}
}
