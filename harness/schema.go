package harness

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/wippyai/wasm-threadcheck/errors"
)

// SchemaID identifies the matrix schema.
const SchemaID = "https://github.com/wippyai/wasm-threadcheck/matrix.schema.json"

// Schema returns the JSON schema of a matrix file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
		// matrix files are closed documents, as enforced by Parse
		AllowAdditionalProperties: false,
	}
	s := reflector.Reflect(&Matrix{})
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "threadcheck matrix"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "marshal matrix schema")
	}
	return data, nil
}
