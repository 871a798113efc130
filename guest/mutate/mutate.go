// Package mutate rewrites a file in a loop, appending a random number
// each time.
package mutate

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
)

// DefaultLoops is the iteration count when none is given.
const DefaultLoops = 100

// Marker is the content of the side file.
const Marker = "$$$$$$$$$"

// Params configures one run. Random values are drawn from [Start, End).
type Params struct {
	// Rand overrides the random source; nil uses the global generator.
	Rand    *rand.Rand
	Path    string
	Search  string
	Replace string
	Start   uint64
	End     uint64
	Loops   int
}

// ParseArgs reads argv (program name first):
// <file> <search> <replace> <start> <end> [loops].
func ParseArgs(args []string) (Params, error) {
	if len(args) < 6 || len(args) > 7 {
		return Params{}, fmt.Errorf("expected 5 or 6 arguments, got %d", len(args)-1)
	}
	p := Params{Path: args[1], Search: args[2], Replace: args[3], Loops: DefaultLoops}

	var err error
	if p.Start, err = strconv.ParseUint(args[4], 10, 64); err != nil {
		return Params{}, fmt.Errorf("start: %w", err)
	}
	if p.End, err = strconv.ParseUint(args[5], 10, 64); err != nil {
		return Params{}, fmt.Errorf("end: %w", err)
	}
	if len(args) == 7 {
		n, err := strconv.ParseUint(args[6], 10, 31)
		if err != nil {
			return Params{}, fmt.Errorf("loops: %w", err)
		}
		p.Loops = int(n)
	}
	if p.Start >= p.End {
		return Params{}, fmt.Errorf("start %d must be below end %d", p.Start, p.End)
	}
	return p, nil
}

// SideFile is the path of the marker file written next to path.
func SideFile(path string, start, end uint64) string {
	return fmt.Sprintf("%s-%d~%d.txt", path, start, end)
}

// Run prints the file and its substituted form, writes the marker side
// file, then Loops times re-reads the file, appends ", <n>" and writes it
// back. Writes are not atomic.
func Run(p Params, stdout io.Writer) error {
	if p.Start >= p.End {
		return fmt.Errorf("start %d must be below end %d", p.Start, p.End)
	}

	fmt.Fprintf(stdout, "reading file: %s\n", p.Path)
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return err
	}
	content := string(data)
	fmt.Fprintln(stdout, content)
	fmt.Fprintln(stdout, strings.ReplaceAll(content, p.Search, p.Replace))

	fmt.Fprintln(stdout, "random replace start")
	if err := os.WriteFile(SideFile(p.Path, p.Start, p.End), []byte(Marker), 0o644); err != nil {
		return err
	}

	for i := 0; i < p.Loops; i++ {
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return err
		}
		next := fmt.Sprintf("%s, %d", data, p.draw())
		fmt.Fprintln(stdout, next)
		if err := os.WriteFile(p.Path, []byte(next), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (p Params) draw() uint64 {
	span := p.End - p.Start
	if p.Rand != nil {
		return p.Start + p.Rand.Uint64N(span)
	}
	return p.Start + rand.Uint64N(span)
}
