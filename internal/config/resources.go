package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/crudkit/internal/resource"
)

// ResourcesFile is the top-level shape of a definitions file.
type ResourcesFile struct {
	Resources []resource.Definition `json:"resources" yaml:"resources"`
}

// ErrUnsupportedFormat is returned for a definitions file whose extension
// is not .yaml, .yml, .cue or .json.
var ErrUnsupportedFormat = errors.New("unsupported format")

//go:embed schema.cue
var resourcesSchema string

// LoadResources reads resource definitions from path. The format follows
// the extension: .yaml/.yml, .cue or .json. Every definition is validated
// and names must be unique.
func LoadResources(path string) ([]resource.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}

	var file ResourcesFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &file)
	case ".cue":
		err = decodeCUE(path, data, &file)
	case ".json":
		err = decodeJSON(data, &file)
	default:
		return nil, fmt.Errorf("resources %s: %w %q", path, ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("resources %s: %w", path, err)
	}

	if err := ValidateDefinitions(file.Resources); err != nil {
		return nil, fmt.Errorf("resources %s: %w", path, err)
	}
	return file.Resources, nil
}

// ValidateDefinitions validates each definition and checks that resource
// and table names are unique. All problems are reported together.
func ValidateDefinitions(defs []resource.Definition) error {
	var errs []error
	names := make(map[string]bool, len(defs))
	tables := make(map[string]bool, len(defs))
	for i, d := range defs {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("resources[%d]: %w", i, err))
			continue
		}
		if names[d.Name] {
			errs = append(errs, fmt.Errorf("resources[%d]: duplicate resource %q", i, d.Name))
		}
		if tables[d.TableName()] {
			errs = append(errs, fmt.Errorf("resources[%d]: duplicate table %q", i, d.TableName()))
		}
		names[d.Name] = true
		tables[d.TableName()] = true
	}
	return errors.Join(errs...)
}

func decodeYAML(data []byte, file *ResourcesFile) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func decodeJSON(data []byte, file *ResourcesFile) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(file); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

// decodeCUE unifies the file with the definitions schema, so kinds and
// unknown fields are rejected with CUE positions.
func decodeCUE(path string, data []byte, file *ResourcesFile) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(resourcesSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse cue: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate cue: %w", err)
	}
	if err := unified.Decode(file); err != nil {
		return fmt.Errorf("decode cue: %w", err)
	}
	return nil
}
