// Package main is the entry point for the Pulse UDP lifesign peer.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
