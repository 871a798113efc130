// Package errors provides structured error types for the threadcheck host.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Verification failures carry the expected and observed outcome
// renderings so a report can print them side by side.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseVerify, errors.KindMismatch).
//		Path("exit_child 43").
//		Expected("exited(43)").
//		Observed("aborted").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Mismatch("panic", "aborted", "exited(0)")
//	err := errors.Config([]string{"cases", "2", "code"}, "must be <= 255", nil)
//
// Guest outcomes (exit statuses, traps) are never reported as errors; these
// types describe host failures and verification results only.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
