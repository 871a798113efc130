// Command mutate rewrites a file in a loop:
//
//	mutate <file> <search> <replace> <start> <end> [loops]
package main

import (
	"fmt"
	"os"

	"github.com/wippyai/wasm-threadcheck/guest/mutate"
)

func main() {
	p, err := mutate.ParseArgs(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s <file> <search> <replace> <start> <end> [loops]\n%v\n", os.Args[0], err)
		os.Exit(1)
	}
	if err := mutate.Run(p, os.Stdout); err != nil {
		panic(err)
	}
}
