// Package spawn is the thread demo: a greeting, then the main unit and one
// worker each print a numbered line per iteration, interleaved.
package spawn

import (
	"fmt"
	"io"
	"sync"
)

// DefaultCount is the exclusive upper bound of the line numbers.
const DefaultCount = 1000

// Run prints "Hello, world!" and then "hi number i from the spawned thread!"
// from a worker and "hi number i from the main thread!" from the caller for
// i in 1..n-1. It returns after joining the worker, so every line is
// written. Each line is a single write.
func Run(stdout io.Writer, n int) {
	w := &lineWriter{w: stdout}
	w.printf("Hello, world!\n")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i < n; i++ {
			w.printf("hi number %d from the spawned thread!\n", i)
		}
	}()

	for i := 1; i < n; i++ {
		w.printf("hi number %d from the main thread!\n", i)
	}
	wg.Wait()
}

type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}
