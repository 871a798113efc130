//go:build unix

package native

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/wippyai/wasm-threadcheck/outcome"
)

func classify(ps *os.ProcessState) outcome.Outcome {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		return fromExitCode(ps.ExitCode())
	}
	switch {
	case ws.Exited():
		return outcome.Exited(uint32(ws.ExitStatus()))
	case ws.Signaled():
		reason := "signal: " + signalName(ws.Signal())
		if ws.CoreDump() {
			reason += " (core dumped)"
		}
		return outcome.Aborted(reason)
	}
	return outcome.Aborted(ps.String())
}

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
