package commoncheck

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-threadcheck/outcome"
)

type recorder struct {
	mu    sync.Mutex
	out   bytes.Buffer
	codes []int
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Write(p)
}

func (r *recorder) env() Env {
	return Env{
		Stdout: r,
		Stderr: r,
		Exit: func(code int) {
			r.mu.Lock()
			r.codes = append(r.codes, code)
			r.mu.Unlock()
		},
	}
}

func TestRun_OK(t *testing.T) {
	var r recorder
	require.NoError(t, Run(context.Background(), outcome.MustParseCase("ok"), r.env()))
	assert.Equal(t, "ok\n", r.out.String())
	assert.Empty(t, r.codes)
}

func TestRun_OKChildJoins(t *testing.T) {
	for i := 0; i < 50; i++ {
		var r recorder
		require.NoError(t, Run(context.Background(), outcome.MustParseCase("ok_child"), r.env()))
		// the worker's output is complete when Run returns
		assert.Equal(t, "ok\n", r.out.String())
	}
}

func TestRun_Exit(t *testing.T) {
	var r recorder
	require.NoError(t, Run(context.Background(), outcome.MustParseCase("exit 42"), r.env()))
	assert.Equal(t, "exit 42\n", r.out.String())
	assert.Equal(t, []int{42}, r.codes)
}

func TestRun_ExitChild(t *testing.T) {
	var r recorder
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, Run(ctx, outcome.MustParseCase("exit_child 43"), r.env()))
	assert.Equal(t, "exit 43\n", r.out.String())
	assert.Equal(t, []int{43}, r.codes)
}

func TestRun_MainPanics(t *testing.T) {
	var r recorder
	assert.PanicsWithValue(t, PanicMessage, func() {
		_ = Run(context.Background(), outcome.MustParseCase("panic"), r.env())
	})
	assert.PanicsWithValue(t, UnreachableMessage, func() {
		_ = Run(context.Background(), outcome.MustParseCase("unreachable"), r.env())
	})
}

func TestWait_Cancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	never := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- wait(ctx, never) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not observe cancellation")
	}
}

func TestMustParseCaseRejectsInvalidArgs(t *testing.T) {
	assert.Panics(t, func() { mustParseCase(nil) })
	assert.Panics(t, func() { mustParseCase([]string{"exit"}) })
	assert.Panics(t, func() { mustParseCase([]string{"bogus"}) })
	assert.Equal(t, outcome.MustParseCase("exit_child 43"), mustParseCase([]string{"exit_child", "43"}))
}
