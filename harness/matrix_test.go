package harness

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-threadcheck/errors"
	"github.com/wippyai/wasm-threadcheck/outcome"
)

func matrixCases(t *testing.T, m Matrix) []outcome.Case {
	t.Helper()
	cases := make([]outcome.Case, 0, len(m.Cases))
	for _, cs := range m.Cases {
		c, err := cs.Case()
		require.NoError(t, err)
		cases = append(cases, c)
	}
	return cases
}

func TestDefaultMatrix(t *testing.T) {
	m := DefaultMatrix()
	require.NoError(t, m.Validate())

	cases := matrixCases(t, m)
	require.Len(t, cases, len(outcome.Selectors))

	var got []string
	for _, c := range cases {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{
		"unreachable", "unreachable_child",
		"exit 42", "exit_child 43",
		"panic", "panic_child",
		"ok", "ok_child",
	}, got)
}

func TestParse(t *testing.T) {
	doc := `
name: exits
timeout: 1500ms
cases:
  - selector: exit
    code: 0
  - selector: exit_child
    code: 255
  - selector: panic_child
`
	m, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "exits", m.Name)
	assert.Equal(t, 1500*time.Millisecond, time.Duration(m.Timeout))

	assert.Equal(t, []outcome.Case{
		{Selector: outcome.Exit, Code: 0},
		{Selector: outcome.ExitChild, Code: 255},
		{Selector: outcome.PanicChild},
	}, matrixCases(t, m))
}

func TestParseDefaultsTimeout(t *testing.T) {
	m, err := Parse([]byte("name: x\ncases:\n  - selector: ok\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, time.Duration(m.Timeout))
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		phase errors.Phase
	}{
		{"empty", "", errors.PhaseConfig},
		{"unknown selector", "name: x\ncases:\n  - selector: abort\n", errors.PhaseParse},
		{"missing selector", "name: x\ncases:\n  - code: 1\n", errors.PhaseConfig},
		{"exit without code", "name: x\ncases:\n  - selector: exit\n", errors.PhaseConfig},
		{"exit_child without code", "name: x\ncases:\n  - selector: exit_child\n", errors.PhaseConfig},
		{"code out of range", "name: x\ncases:\n  - selector: exit\n    code: 256\n", errors.PhaseConfig},
		{"code on non-exit selector", "name: x\ncases:\n  - selector: panic\n    code: 3\n", errors.PhaseConfig},
		{"no cases", "name: x\ncases: []\n", errors.PhaseConfig},
		{"missing name", "cases:\n  - selector: ok\n", errors.PhaseConfig},
		{"negative timeout", "name: x\ntimeout: -1s\ncases:\n  - selector: ok\n", errors.PhaseConfig},
		{"bad timeout", "name: x\ntimeout: soon\ncases:\n  - selector: ok\n", errors.PhaseParse},
		{"unknown field", "name: x\nretries: 3\ncases:\n  - selector: ok\n", errors.PhaseParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			var e *errors.Error
			require.True(t, stderrors.As(err, &e), "want *errors.Error, got %T", err)
			assert.Equal(t, tt.phase, e.Phase)
		})
	}
}

func TestParseReportsFieldPath(t *testing.T) {
	_, err := Parse([]byte("name: x\ncases:\n  - selector: ok\n  - selector: exit\n    code: 300\n"))
	require.Error(t, err)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, []string{"Matrix", "Cases[1]", "Code"}, e.Path)
}

func TestLoadMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file\ncases:\n  - selector: unreachable\n"), 0o644))

	m, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, "file", m.Name)

	_, err = LoadMatrix(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound}))

	_, err = LoadMatrix(t.TempDir())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindIO}))
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, SchemaID, doc["$id"])
	assert.Equal(t, false, doc["additionalProperties"])
	assert.ElementsMatch(t, []any{"name", "cases"}, doc["required"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	timeout, ok := props["timeout"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", timeout["type"])

	for _, sel := range outcome.Selectors {
		assert.Contains(t, string(data), `"`+sel.String()+`"`)
	}
	assert.Contains(t, string(data), `"maximum": 255`)
}

func TestCaseSpecCase(t *testing.T) {
	code := func(v uint32) *uint32 { return &v }
	sel := func(s outcome.Selector) *outcome.Selector { return &s }

	c, err := CaseSpec{Selector: sel(outcome.Exit), Code: code(0)}.Case()
	require.NoError(t, err)
	assert.Equal(t, outcome.MustParseCase("exit 0"), c)

	for name, cs := range map[string]CaseSpec{
		"nil selector":      {},
		"exit without code": {Selector: sel(outcome.ExitChild)},
		"code on ok":        {Selector: sel(outcome.OK), Code: code(0)},
		"code too large":    {Selector: sel(outcome.Exit), Code: code(256)},
		"invalid selector":  {Selector: sel(outcome.Selector(99))},
	} {
		_, err := cs.Case()
		assert.Error(t, err, name)
	}

	for _, c := range []string{"exit 7", "exit_child 0", "panic", "ok_child"} {
		got, err := NewCaseSpec(outcome.MustParseCase(c)).Case()
		require.NoError(t, err)
		assert.Equal(t, c, got.String())
	}
}
