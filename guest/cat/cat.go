// Package cat prints a file line by line.
package cat

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Run implements the cat guest for argv (program name first). A wrong
// argument count prints usage and returns 1; an unreadable file panics.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		name := "cat"
		if len(args) > 0 {
			name = args[0]
		}
		fmt.Fprintf(stderr, "Usage: %s <file>\n", name)
		return 1
	}

	f, err := os.Open(args[1])
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := bufio.NewWriter(stdout)
	defer w.Flush()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		fmt.Fprintln(w, sc.Text())
	}
	if err := sc.Err(); err != nil {
		panic(err)
	}
	return 0
}
