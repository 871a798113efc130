// Command cat prints a file line by line.
package main

import (
	"os"

	"github.com/wippyai/wasm-threadcheck/guest/cat"
)

func main() {
	os.Exit(cat.Run(os.Args, os.Stdout, os.Stderr))
}
