// Command flicksplit splits a bill from the command line: it lists
// currencies, fetches exchange rates and prints the shareable summary.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
