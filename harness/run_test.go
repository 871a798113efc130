package harness

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/native"
	"github.com/wippyai/wasm-threadcheck/outcome"
	"github.com/wippyai/wasm-threadcheck/runtime"
)

// conforming behaves like a correct host.
var conforming = BackendFunc(func(_ context.Context, c outcome.Case) (outcome.Outcome, error) {
	o := outcome.Expect(c)
	if o.Kind == outcome.KindAborted {
		o.Reason = "trap"
	}
	return o, nil
})

func TestRunConformingBackend(t *testing.T) {
	var indices []int
	report := Run(context.Background(), conforming, DefaultMatrix(), OnResult(func(i int, r Result) {
		indices = append(indices, i)
		assert.True(t, r.Passed(), "case %s", r.Case)
	}))

	assert.Equal(t, "default", report.Name)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, indices)
	assert.Zero(t, report.Failed())
	assert.NoError(t, report.Distinct())
	assert.True(t, report.Passed())
}

func TestRunMismatch(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	// a host that cannot tell a panic from exit status 2
	sloppy := BackendFunc(func(ctx context.Context, c outcome.Case) (outcome.Outcome, error) {
		if c.Selector == outcome.Panic {
			return outcome.Exited(2), nil
		}
		return conforming(ctx, c)
	})
	m := Matrix{Name: "m", Cases: []CaseSpec{
		NewCaseSpec(outcome.MustParseCase("panic")),
		NewCaseSpec(outcome.MustParseCase("exit 2")),
	}}
	report := Run(context.Background(), sloppy, m, WithLogger(zap.New(core)))

	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].Passed())
	assert.NoError(t, report.Results[0].Err)
	assert.True(t, stderrors.Is(report.Results[0].Mismatch, &errors.Error{Phase: errors.PhaseVerify, Kind: errors.KindMismatch}))
	assert.True(t, report.Results[1].Passed())
	assert.Error(t, report.Distinct())
	assert.False(t, report.Passed())

	assert.Equal(t, 1, logs.FilterMessage("case mismatch").Len())
	assert.Equal(t, 1, logs.FilterMessage("case passed").Len())
	assert.Equal(t, 1, logs.FilterMessage("outcomes not distinct").Len())
}

func TestRunHostError(t *testing.T) {
	boom := stderrors.New("boom")
	failing := BackendFunc(func(context.Context, outcome.Case) (outcome.Outcome, error) {
		return outcome.Outcome{}, boom
	})
	report := Run(context.Background(), failing, Matrix{Name: "m", Cases: []CaseSpec{NewCaseSpec(outcome.MustParseCase("ok"))}})

	require.Len(t, report.Results, 1)
	assert.ErrorIs(t, report.Results[0].Err, boom)
	assert.NoError(t, report.Results[0].Mismatch)
	assert.NoError(t, report.Distinct())
	assert.False(t, report.Passed())
}

func TestRunInvalidCaseSpec(t *testing.T) {
	report := Run(context.Background(), conforming, Matrix{Name: "m", Cases: []CaseSpec{{}}})
	require.Len(t, report.Results, 1)
	assert.Error(t, report.Results[0].Err)
}

func TestRunAppliesCaseTimeout(t *testing.T) {
	blocking := BackendFunc(func(ctx context.Context, _ outcome.Case) (outcome.Outcome, error) {
		<-ctx.Done()
		return outcome.TimedOut(), nil
	})
	m := Matrix{Name: "m", Timeout: Duration(50 * time.Millisecond), Cases: []CaseSpec{NewCaseSpec(outcome.MustParseCase("ok"))}}

	started := time.Now()
	report := Run(context.Background(), blocking, m)
	assert.Less(t, time.Since(started), 5*time.Second)

	require.Len(t, report.Results, 1)
	assert.Equal(t, outcome.KindTimedOut, report.Results[0].Observed.Kind)
	assert.Error(t, report.Results[0].Mismatch)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	counting := BackendFunc(func(ctx context.Context, c outcome.Case) (outcome.Outcome, error) {
		calls++
		cancel()
		return conforming(ctx, c)
	})
	report := Run(ctx, counting, DefaultMatrix())

	assert.Equal(t, 1, calls)
	require.Len(t, report.Results, len(outcome.Selectors))
	assert.True(t, report.Results[0].Passed())
	for _, r := range report.Results[1:] {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRunOnStart(t *testing.T) {
	var started []string
	Run(context.Background(), conforming, DefaultMatrix(), OnStart(func(_ int, c outcome.Case) {
		started = append(started, c.String())
	}))
	assert.Len(t, started, len(outcome.Selectors))
	assert.Equal(t, "exit 42", started[2])
}

func TestWasmBackendDefaultMatrix(t *testing.T) {
	if testing.Short() {
		t.Skip("runs eight wazero guests")
	}
	ctx := context.Background()
	rt, err := runtime.New(ctx)
	require.NoError(t, err)
	defer rt.Close(ctx)

	var stdout, stderr bytes.Buffer
	b := &WasmBackend{Runtime: rt, Stdout: &stdout, Stderr: &stderr}
	report := Run(ctx, b, DefaultMatrix())

	for _, r := range report.Results {
		assert.True(t, r.Passed(), "case %s: observed %s, err %v, mismatch %v", r.Case, r.Observed, r.Err, r.Mismatch)
	}
	assert.True(t, report.Passed())
	assert.Contains(t, stderr.String(), "panic!")
}

func TestBackendsRequireHost(t *testing.T) {
	c := outcome.MustParseCase("ok")

	_, err := (&WasmBackend{}).Run(context.Background(), c)
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseRun, Kind: errors.KindNotInitialized}))

	_, err = (&NativeBackend{}).Run(context.Background(), c)
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseRun, Kind: errors.KindNotInitialized}))

	_, err = (&NativeBackend{Runner: &native.Runner{}}).Run(context.Background(), c)
	assert.Error(t, err)
}

func TestWasmBackendGuestArgs(t *testing.T) {
	c := outcome.MustParseCase("exit_child 7")
	tests := []struct {
		program string
		want    []string
	}{
		{"", []string{"threadcheck", "exit_child", "7"}},
		{"guest.wasm", []string{"guest.wasm", "exit_child", "7"}},
		{NoProgram, []string{"exit_child", "7"}},
	}
	for _, tt := range tests {
		b := &WasmBackend{Program: tt.program}
		assert.Equal(t, tt.want, b.guestArgs(c), "program %q", tt.program)
	}
}
