package harness

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-threadcheck/outcome"
)

// Result is the record of one case.
type Result struct {
	Case     outcome.Case
	Expected outcome.Outcome
	Observed outcome.Outcome
	// Err is a host failure; Observed is then unset.
	Err error
	// Mismatch is set when Observed differs from Expected.
	Mismatch error
	Duration time.Duration
}

// Passed reports whether the observed outcome matched.
func (r Result) Passed() bool {
	return r.Err == nil && r.Mismatch == nil
}

// Report is the result of running a matrix.
type Report struct {
	Name    string
	Results []Result
	Elapsed time.Duration
}

// Failed returns the number of cases that did not pass.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed() {
			n++
		}
	}
	return n
}

// Distinct checks that no case expected to abort observed the same outcome
// as a case expected to exit. Cases that failed on the host are skipped.
func (r Report) Distinct() error {
	var cases []outcome.Case
	var observed []outcome.Outcome
	for _, res := range r.Results {
		if res.Err != nil {
			continue
		}
		cases = append(cases, res.Case)
		observed = append(observed, res.Observed)
	}
	return outcome.Distinct(cases, observed)
}

// Passed reports whether every case matched and outcomes stayed distinct.
func (r Report) Passed() bool {
	return len(r.Results) > 0 && r.Failed() == 0 && r.Distinct() == nil
}

type runOptions struct {
	logger   *zap.Logger
	onResult func(int, Result)
	onStart  func(int, outcome.Case)
}

// Option configures Run.
type Option func(*runOptions)

// WithLogger logs one line per case.
func WithLogger(l *zap.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// OnResult is called after each case with its index.
func OnResult(fn func(int, Result)) Option {
	return func(o *runOptions) { o.onResult = fn }
}

// OnStart is called before each case with its index.
func OnStart(fn func(int, outcome.Case)) Option {
	return func(o *runOptions) { o.onStart = fn }
}

// Run executes the matrix cases in order, one at a time. Each case gets
// its own deadline of m.Timeout. A canceled ctx fails the remaining cases.
func Run(ctx context.Context, b Backend, m Matrix, opts ...Option) Report {
	o := runOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	timeout := time.Duration(m.Timeout)
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	started := time.Now()
	report := Report{Name: m.Name, Results: make([]Result, 0, len(m.Cases))}
	for i, cs := range m.Cases {
		c, err := cs.Case()
		if err == nil && o.onStart != nil {
			o.onStart(i, c)
		}
		var res Result
		if err != nil {
			res = Result{Err: err}
		} else {
			res = runCase(ctx, b, c, timeout)
		}
		logResult(o.logger, res)
		report.Results = append(report.Results, res)
		if o.onResult != nil {
			o.onResult(i, res)
		}
	}
	report.Elapsed = time.Since(started)

	if err := report.Distinct(); err != nil {
		o.logger.Warn("outcomes not distinct", zap.String("matrix", m.Name), zap.Error(err))
	}
	return report
}

func runCase(ctx context.Context, b Backend, c outcome.Case, timeout time.Duration) Result {
	res := Result{Case: c, Expected: outcome.Expect(c)}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	caseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	observed, err := b.Run(caseCtx, c)
	res.Duration = time.Since(started)
	if err != nil {
		res.Err = err
		return res
	}
	res.Observed = observed
	if err := outcome.Verify(c, observed); err != nil {
		res.Mismatch = err
	}
	return res
}

func logResult(log *zap.Logger, res Result) {
	fields := []zap.Field{
		zap.Stringer("case", res.Case),
		zap.Stringer("expected", res.Expected),
		zap.Duration("duration", res.Duration),
	}
	switch {
	case res.Passed():
		log.Info("case passed", append(fields, zap.Stringer("observed", res.Observed))...)
	case res.Err == nil:
		log.Warn("case mismatch", append(fields, zap.Stringer("observed", res.Observed), zap.Error(res.Mismatch))...)
	default:
		log.Error("case failed", append(fields, zap.Error(res.Err))...)
	}
}
