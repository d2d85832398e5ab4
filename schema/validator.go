// Package schema holds the JSON Schema for slotsync.yml and validates decoded
// configuration documents against it.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

//go:embed slotsync.embedded.schema.json
var embeddedSchemaData []byte

const resourceName = "slotsync.json"

// Violation is one failed constraint, located by JSON pointer.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, fmt.Sprintf("- %s: %s", v.Path, v.Message))
	}
	return "schema validation failed:\n" + strings.Join(lines, "\n")
}

// Validator checks documents against the compiled schema. It is safe for
// concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a process-wide validator, compiling the schema on first use.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(resourceName, bytes.NewReader(embeddedSchemaData)); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Raw returns the embedded schema document.
func Raw() []byte {
	return embeddedSchemaData
}

// Validate checks doc, which may be a struct or a decoded YAML/TOML map.
// Values are round-tripped through JSON so the validator sees plain JSON types.
// Constraint failures are returned as *ValidationError.
func (v *Validator) Validate(doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document for validation: %w", err)
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("failed to decode document for validation: %w", err)
	}

	err = v.schema.Validate(plain)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	out := &ValidationError{}
	collect(verr, &out.Violations)
	if len(out.Violations) == 0 {
		out.Violations = append(out.Violations, Violation{Path: "/", Message: verr.Message})
	}
	sort.SliceStable(out.Violations, func(i, j int) bool {
		return out.Violations[i].Path < out.Violations[j].Path
	})
	return out
}

// collect keeps leaf causes only; parents repeat their children's failures.
func collect(err *jsonschema.ValidationError, into *[]Violation) {
	if len(err.Causes) == 0 {
		path := err.InstanceLocation
		if path == "" {
			path = "/"
		}
		*into = append(*into, Violation{Path: path, Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collect(cause, into)
	}
}
