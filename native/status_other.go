//go:build !unix

package native

import (
	"os"

	"github.com/wippyai/wasm-threadcheck/outcome"
)

func classify(ps *os.ProcessState) outcome.Outcome {
	return fromExitCode(ps.ExitCode())
}
