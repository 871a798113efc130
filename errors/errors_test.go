package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "mismatch",
			err: &Error{
				Phase:    PhaseVerify,
				Kind:     KindMismatch,
				Path:     []string{"cases", "exit_child 43"},
				Expected: "exited(43)",
				Observed: "aborted",
				Detail:   "worker exit lost",
			},
			contains: []string{"[verify]", "mismatch", "cases.exit_child 43", "expected exited(43)", "observed aborted", " - worker exit lost"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseParse,
				Kind:  KindInvalidData,
			},
			contains: []string{"[parse]", "invalid_data"},
		},
		{
			name: "only observed",
			err: &Error{
				Phase:    PhaseVerify,
				Kind:     KindMismatch,
				Observed: "timed out",
			},
			contains: []string{"expected <none>", "observed timed out"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCompile,
				Kind:   KindInvalidData,
				Detail: "compile guest",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[compile]", "invalid_data", ": compile guest", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindIO,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseVerify,
		Kind:  KindMismatch,
		Path:  []string{"ok"},
	}

	if !err.Is(&Error{Phase: PhaseVerify, Kind: KindMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseRun, Kind: KindMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseVerify, Kind: KindInvalidData}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseVerify, Kind: KindMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseVerify, KindMismatch).
		Path("matrix", "ok_child").
		Expected("exited(0)").
		Observed("timed out").
		Value(7).
		Cause(cause).
		Detail("case %d of %d", 7, 8).
		Build()

	if err.Phase != PhaseVerify {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseVerify)
	}
	if err.Kind != KindMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "matrix" || err.Path[1] != "ok_child" {
		t.Errorf("Path = %v, want [matrix ok_child]", err.Path)
	}
	if err.Expected != "exited(0)" || err.Observed != "timed out" {
		t.Errorf("Expected=%q Observed=%q", err.Expected, err.Observed)
	}
	if err.Value != 7 {
		t.Errorf("Value = %v, want 7", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "case 7 of 8" {
		t.Errorf("Detail = %q, want 'case 7 of 8'", err.Detail)
	}
}

func TestBuilderDetailWithoutArgs(t *testing.T) {
	err := New(PhaseRun, KindIO).Detail("100% literal").Build()
	if err.Detail != "100% literal" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"Mismatch", Mismatch("panic", "aborted", "exited(0)"), PhaseVerify, KindMismatch},
		{"Unsupported", Unsupported(PhaseLink, "memory64"), PhaseLink, KindUnsupported},
		{"InvalidData", InvalidData(PhaseParse, []string{"import"}, "bad kind"), PhaseParse, KindInvalidData},
		{"InvalidInput", InvalidInput(PhaseParse, "missing selector"), PhaseParse, KindInvalidInput},
		{"NotFound", NotFound(PhaseLink, "export", "_start"), PhaseLink, KindNotFound},
		{"NotInitialized", NotInitialized(PhaseRun, "engine"), PhaseRun, KindNotInitialized},
		{"MissingExport", MissingExport("wasi_thread_start"), PhaseLink, KindMissingExport},
		{"Link", Link("wasi", cause), PhaseLink, KindInstantiation},
		{"Instantiation", Instantiation(cause), PhaseInstantiate, KindInstantiation},
		{"Load", Load("read guest", cause), PhaseLoad, KindIO},
		{"ParseFailed", ParseFailed("module", cause), PhaseParse, KindInvalidData},
		{"Config", Config([]string{"cases", "0"}, "bad", nil), PhaseConfig, KindInvalidInput},
		{"Wrap", Wrap(PhaseRun, KindIO, cause, "write"), PhaseRun, KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
		})
	}

	if m := Mismatch("panic", "aborted", "exited(0)"); m.Path[0] != "panic" {
		t.Errorf("Mismatch path = %v", m.Path)
	}
	if nf := NotFound(PhaseLink, "export", "_start"); !strings.Contains(nf.Detail, `"_start"`) {
		t.Errorf("NotFound detail = %q", nf.Detail)
	}
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"wasi.thread-spawn"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Module != "wasi" {
			t.Errorf("module = %q, want wasi", err.Imports[0].Module)
		}
		if err.Imports[0].Name != "thread-spawn" {
			t.Errorf("name = %q, want thread-spawn", err.Imports[0].Name)
		}
	})

	t.Run("key without name", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env"})
		if err.Imports[0].Module != "env" || err.Imports[0].Name != "" {
			t.Errorf("got %+v", err.Imports[0])
		}
	})

	t.Run("grouped by module", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"wasi_snapshot_preview1.sock_accept",
			"wasi.thread-spawn",
			"wasi_snapshot_preview1.sock_recv",
		})
		msg := err.Error()
		for _, want := range []string{"missing 3", "wasi_snapshot_preview1:", "wasi:", "- sock_recv", "- thread-spawn"} {
			if !strings.Contains(msg, want) {
				t.Errorf("error %q should contain %q", msg, want)
			}
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError([]string{})
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env.memory"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}
