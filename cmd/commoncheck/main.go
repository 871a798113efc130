// Command commoncheck is the outcome-check guest. Its single argument
// selects a behaviour; exit selectors take a status as the second:
//
//	commoncheck exit_child 43
//
// Build it natively or with GOOS=wasip1 for the wasm backend.
package main

import (
	"os"

	"github.com/wippyai/wasm-threadcheck/guest/commoncheck"
)

func main() {
	commoncheck.Main(os.Args[1:])
}
