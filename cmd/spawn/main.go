// Command spawn interleaves output from the main thread and a worker,
// then joins the worker.
package main

import (
	"os"

	flag "github.com/spf13/pflag"

	"github.com/wippyai/wasm-threadcheck/guest/spawn"
)

func main() {
	n := flag.IntP("count", "n", spawn.DefaultCount, "exclusive upper bound of the line numbers")
	flag.Parse()
	spawn.Run(os.Stdout, *n)
}
