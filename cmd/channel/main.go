// Command channel receives one message from a worker and prints it.
package main

import (
	"os"

	flag "github.com/spf13/pflag"

	"github.com/wippyai/wasm-threadcheck/guest/channel"
)

func main() {
	delay := flag.Duration("delay", 0, "worker sleeps this long before sending")
	flag.Parse()
	channel.Run(os.Stdout, *delay)
}
