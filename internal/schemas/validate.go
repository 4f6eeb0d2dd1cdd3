// Package schemas provides JSON Schema validation for the search result artifact.
package schemas

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/resume-evaluator/internal/types"
)

const schemaName = "search_results.schema.json"

//go:embed search_results.schema.json
var searchResultsSchema string

var compiled = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(searchResultsSchema))
	if err != nil {
		return nil, &SchemaLoadError{Path: schemaName, Message: "embedded schema does not compile", Cause: err}
	}
	return schema, nil
})

// SearchResultsSchema returns the embedded SearchResultSet schema.
func SearchResultsSchema() string {
	return searchResultsSchema
}

// FieldError is one violation, located by its dotted field path.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	lines := make([]string, 0, len(ve.Errors)+1)
	lines = append(lines, "validation failed:")
	for i, fe := range ve.Errors {
		lines = append(lines, fmt.Sprintf("  %d. %s: %s", i+1, fe.Field, fe.Message))
	}
	return strings.Join(lines, "\n") + "\n"
}

// SchemaLoadError means the schema itself could not be used.
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	msg := fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// ValidateResultSet checks a SearchResultSet against the embedded schema and its
// struct constraints.
func ValidateResultSet(set *types.SearchResultSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal result set: %w", err)
	}
	if err := validate(data); err != nil {
		return err
	}
	return set.Validate()
}

// ValidateResultFile checks a SearchResultSet JSON file against the embedded schema.
func ValidateResultFile(jsonPath string) error {
	absPath, err := filepath.Abs(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to resolve JSON path: %w", err)
	}
	content, err := os.ReadFile(absPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("JSON file not found: %s", absPath)
	case err != nil:
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if !json.Valid(content) {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "file is not valid JSON"}}}
	}
	return validate(content)
}

func validate(document []byte) error {
	schema, err := compiled()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}
