package templates

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/adaptiq/internal/apperr"
)

//go:embed pack.schema.json
var packSchemaJSON []byte

const packSchemaURL = "schema://adaptiq/template-pack.json"

var compilePackSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(packSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse pack schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(packSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add pack schema: %w", err)
	}
	return c.Compile(packSchemaURL)
})

// Pack is the on-disk template pack format.
type Pack struct {
	Version   int        `json:"version,omitempty"`
	Templates []Template `json:"templates"`
}

// ParsePack validates raw against the pack schema and decodes it into a
// library. Semantic checks are left to Library.Validate.
func ParsePack(raw []byte) (*Library, error) {
	schema, err := compilePackSchema()
	if err != nil {
		return nil, apperr.Misconfigured("template pack schema: %v", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, &apperr.ValidationError{Field: "template pack", Message: "invalid JSON", Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return nil, &apperr.ValidationError{Field: "template pack", Message: err.Error(), Err: err}
	}

	var pack Pack
	if err := json.Unmarshal(raw, &pack); err != nil {
		return nil, &apperr.ValidationError{Field: "template pack", Message: "decode", Err: err}
	}
	return NewLibrary(pack.Templates)
}

// LoadFile reads a template pack from path and validates it against reg.
func LoadFile(path string, reg *Registry) (*Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template pack: %w", err)
	}
	lib, err := ParsePack(raw)
	if err != nil {
		return nil, fmt.Errorf("template pack %s: %w", path, err)
	}
	if err := lib.Validate(reg); err != nil {
		return nil, fmt.Errorf("template pack %s: %w", path, err)
	}
	return lib, nil
}

// Load returns the built-in library, merged with the pack at path when path
// is not empty.
func Load(path string, reg *Registry) (*Library, error) {
	lib := Builtin()
	if path == "" {
		return lib, nil
	}
	pack, err := LoadFile(path, reg)
	if err != nil {
		return nil, err
	}
	return lib.Merge(pack), nil
}
