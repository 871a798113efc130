// Command threadcheck runs the outcome matrix against a host and reports,
// per case, the expected and observed termination.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-threadcheck/engine"
	"github.com/wippyai/wasm-threadcheck/harness"
	"github.com/wippyai/wasm-threadcheck/native"
	"github.com/wippyai/wasm-threadcheck/outcome"
	"github.com/wippyai/wasm-threadcheck/runtime"
)

const (
	exitPass  = 0
	exitFail  = 1
	exitUsage = 2
)

type options struct {
	backend     string
	guest       string
	program     string
	matrix      string
	cases       []string
	timeout     time.Duration
	verbose     bool
	trace       bool
	interactive bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "schema" {
		data, err := harness.Schema()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFail
		}
		fmt.Fprintln(stdout, string(data))
		return exitPass
	}

	var opts options
	fs := flag.NewFlagSet("threadcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.backend, "backend", "b", "wasm", "Host backend: wasm, native")
	fs.StringVarP(&opts.guest, "guest", "g", "", "Guest .wasm (wasm backend) or executable (native backend)")
	fs.StringVar(&opts.program, "program", "threadcheck", `Guest argv[0] for --guest modules; "-" passes the case as argv[0]`)
	fs.StringVarP(&opts.matrix, "matrix", "m", "", "Matrix YAML file (default: every selector)")
	fs.StringArrayVarP(&opts.cases, "case", "c", nil, `Run a single case, e.g. --case "exit 7" (can be repeated)`)
	fs.DurationVarP(&opts.timeout, "timeout", "t", 0, "Per-case timeout (overrides the matrix)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging and guest output on stderr")
	fs.BoolVar(&opts.trace, "trace", false, "Log every WASI call of wasm guests to stderr")
	fs.BoolVarP(&opts.interactive, "interactive", "i", false, "Interactive mode with TUI")
	fs.Usage = func() {
		fmt.Fprintf(stderr, `threadcheck - check how a host reports guest termination

Usage:
  threadcheck [flags]           Run the matrix
  threadcheck schema            Print the matrix JSON schema

Flags:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return exitPass
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected argument %q\n", fs.Arg(0))
		fs.Usage()
		return exitUsage
	}
	if err := opts.validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	m, err := loadMatrix(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	log := newLogger(opts.verbose, stderr)
	defer func() { _ = log.Sync() }()
	engine.SetLogger(log.Named("engine"))
	defer engine.SetLogger(nil)

	var guestOut io.Writer = io.Discard
	// the TUI owns the terminal
	if opts.verbose && !opts.interactive {
		guestOut = stderr
	}
	backend, closeBackend, err := newBackend(ctx, opts, log, guestOut, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFail
	}
	defer closeBackend()

	var report harness.Report
	if opts.interactive && isTerminal(stdout) {
		report, err = runInteractive(ctx, backend, m)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFail
		}
		printSummary(stdout, report)
	} else {
		fmt.Fprintf(stdout, "%s (%s backend, %d cases)\n", titleStyle.Render(m.Name), opts.backend, len(m.Cases))
		report = harness.Run(ctx, backend, m,
			harness.WithLogger(log),
			harness.OnResult(func(_ int, r harness.Result) { printResult(stdout, r) }))
		printSummary(stdout, report)
	}

	if !report.Passed() {
		return exitFail
	}
	return exitPass
}

func (o options) validate() error {
	switch o.backend {
	case "wasm":
	case "native":
		if o.guest == "" {
			return fmt.Errorf("--backend native requires --guest")
		}
	default:
		return fmt.Errorf("unknown backend %q (want wasm or native)", o.backend)
	}
	if o.matrix != "" && len(o.cases) > 0 {
		return fmt.Errorf("--matrix and --case are mutually exclusive")
	}
	if o.timeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}
	if o.trace && o.backend != "wasm" {
		return fmt.Errorf("--trace requires --backend wasm")
	}
	if o.trace && o.interactive {
		return fmt.Errorf("--trace and --interactive are mutually exclusive")
	}
	return nil
}

func loadMatrix(o options) (harness.Matrix, error) {
	var m harness.Matrix
	switch {
	case o.matrix != "":
		var err error
		if m, err = harness.LoadMatrix(o.matrix); err != nil {
			return harness.Matrix{}, err
		}
	case len(o.cases) > 0:
		m = harness.Matrix{Name: "command line"}
		for _, arg := range o.cases {
			fields := strings.Fields(arg)
			c, err := outcome.ParseCase(fields)
			if err != nil {
				return harness.Matrix{}, fmt.Errorf("case %q: %w", arg, err)
			}
			if len(fields) > len(c.Args()) {
				return harness.Matrix{}, fmt.Errorf("case %q: unexpected argument %q", arg, fields[len(c.Args())])
			}
			m.Cases = append(m.Cases, harness.NewCaseSpec(c))
		}
		if err := m.Validate(); err != nil {
			return harness.Matrix{}, err
		}
	default:
		m = harness.DefaultMatrix()
	}
	if o.timeout > 0 {
		m.Timeout = harness.Duration(o.timeout)
	}
	return m, nil
}

func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	var enc zapcore.Encoder
	level := zap.WarnLevel
	if verbose {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zap.DebugLevel
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(stderr), level)
	return zap.New(core)
}

func newBackend(ctx context.Context, o options, log *zap.Logger, guestOut, traceOut io.Writer) (harness.Backend, func(), error) {
	if o.backend == "native" {
		b := &harness.NativeBackend{Runner: &native.Runner{
			Path:   o.guest,
			Stdout: guestOut,
			Stderr: guestOut,
			Logger: log.Named("native"),
		}}
		return b, func() {}, nil
	}

	var guest []byte
	if o.guest != "" {
		data, err := os.ReadFile(o.guest)
		if err != nil {
			return nil, nil, fmt.Errorf("read guest: %w", err)
		}
		guest = data
	}
	rt, err := runtime.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create runtime: %w", err)
	}
	b := &harness.WasmBackend{Runtime: rt, Guest: guest, Program: o.program, Stdout: guestOut, Stderr: guestOut}
	if o.trace {
		b.Trace = traceOut
	}
	return b, func() { _ = rt.Close(context.Background()) }, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
