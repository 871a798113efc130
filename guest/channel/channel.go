// Package channel is the one-shot channel demo: a worker sends one
// message and the main unit prints what it received.
package channel

import (
	"fmt"
	"io"
	"time"
)

// Message is what the worker sends.
const Message = "hi"

// Run spawns the worker, receives its message and prints "Got: hi". With a
// positive delay the worker announces and sleeps before sending.
func Run(stdout io.Writer, delay time.Duration) string {
	ch := make(chan string, 1)
	go func() {
		if delay > 0 {
			fmt.Fprintf(stdout, "Thread: sleeping for %s...\n", describe(delay))
			time.Sleep(delay)
		}
		ch <- Message
	}()

	received := <-ch
	fmt.Fprintf(stdout, "Got: %s\n", received)
	return received
}

func describe(d time.Duration) string {
	if d%time.Second == 0 {
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	}
	return d.String()
}
