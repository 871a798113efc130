package native

import (
	"strconv"

	"github.com/wippyai/wasm-threadcheck/outcome"
)

// fromExitCode classifies by exit code alone. -1 means the process did not
// exit on its own.
func fromExitCode(code int) outcome.Outcome {
	if code < 0 {
		return outcome.Aborted("no exit status")
	}
	if code > outcome.MaxCode {
		return outcome.Aborted("exit status " + strconv.Itoa(code))
	}
	return outcome.Exited(uint32(code))
}
