// Package outcome defines the execution-outcome contract shared by every
// host and guest in this module.
//
// A Case pairs a Selector with an optional exit status and is passed to
// guests as argv ("exit_child 43"). Hosts report an Outcome, which keeps
// an explicit status apart from abnormal termination: Aborted never equals
// any Exited value, Exited(0) included.
//
//	c, _ := outcome.ParseCase([]string{"exit_child", "43"})
//	if err := outcome.Verify(c, observed); err != nil {
//	    // *errors.Error with Kind mismatch
//	}
package outcome
