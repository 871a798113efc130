package runtime

import (
	"context"
	"io"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/experimental/logging"
)

// withTrace logs every host call and guest export made during a run to w.
// Guest threads share one call log, so listener callbacks are serialized.
func withTrace(ctx context.Context, w io.Writer) context.Context {
	return experimental.WithFunctionListenerFactory(ctx, &traceFactory{
		inner: logging.NewHostLoggingListenerFactory(traceWriter(w), logging.LogScopeAll),
	})
}

type stringWriter struct {
	io.Writer
}

func (w stringWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func traceWriter(w io.Writer) logging.Writer {
	if lw, ok := w.(logging.Writer); ok {
		return lw
	}
	return stringWriter{w}
}

type traceFactory struct {
	mu    sync.Mutex
	inner experimental.FunctionListenerFactory
}

func (f *traceFactory) NewFunctionListener(def api.FunctionDefinition) experimental.FunctionListener {
	l := f.inner.NewFunctionListener(def)
	if l == nil {
		return nil
	}
	return &traceListener{mu: &f.mu, inner: l}
}

type traceListener struct {
	mu    *sync.Mutex
	inner experimental.FunctionListener
}

func (l *traceListener) Before(ctx context.Context, mod api.Module, def api.FunctionDefinition, params []uint64, si experimental.StackIterator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Before(ctx, mod, def, params, si)
}

func (l *traceListener) After(ctx context.Context, mod api.Module, def api.FunctionDefinition, results []uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.After(ctx, mod, def, results)
}

func (l *traceListener) Abort(ctx context.Context, mod api.Module, def api.FunctionDefinition, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.Abort(ctx, mod, def, err)
}
