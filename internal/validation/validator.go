// Package validation checks request bodies against the embedded JSON Schemas
// before they reach the services. Schemas only check shape and types; which
// fields may be changed is decided by the services.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/taskhub/backend/internal/apperror"
)

// Schema names.
const (
	AccountCreate = "account.create"
	AccountUpdate = "account.update"
	Login         = "login"
	TaskCreate    = "task.create"
	TaskUpdate    = "task.update"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://taskhub.local/schemas/"

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		data, err := fs.ReadFile(schemaFS, path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		schemas[name], err = jsonschema.CompileString(schemaBaseURL+e.Name(), string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Decode parses body as a JSON object, validates it against the named schema
// and returns its fields. Numbers are returned as json.Number.
func (v *Validator) Decode(name string, body []byte) (map[string]any, error) {
	schema, ok := v.schemas[name]
	if !ok {
		return nil, apperror.Internal(fmt.Errorf("unknown schema %q", name))
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, apperror.Validation("Invalid JSON")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, apperror.Validation(describe(err))
	}
	fields, ok := doc.(map[string]any)
	if !ok {
		return nil, apperror.Validation("Request body must be a JSON object")
	}
	return fields, nil
}

// describe turns a schema failure into a single line naming the first
// offending field.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "Invalid request body"
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", field, ve.Message)
}
