package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/injectfactory/errors"
)

// Destination is one entry of a destination file.
type Destination struct {
	ID         string `yaml:"id" json:"id"`
	Properties Map    `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// File is the top level document of a destination file.
type File struct {
	Destinations []Destination `yaml:"destinations" json:"destinations"`
}

// Parse decodes a YAML destination document. Unknown top level fields are
// rejected.
func Parse(data []byte) (*File, error) {
	var file File
	if len(bytes.TrimSpace(data)) == 0 {
		return &file, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&file); err != nil {
		return nil, errors.ErrConfigError("failed to parse destination file", err)
	}

	return &file, nil
}

// LoadFile reads and parses the destination file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrConfigError(fmt.Sprintf("failed to read destination file %s", path), err)
	}

	return Parse(data)
}

// Validate checks that every destination has a non-empty, unique id and,
// when it sets one, a known scope.
func (f *File) Validate() error {
	seen := make(map[string]struct{}, len(f.Destinations))

	var errs []error
	for i, d := range f.Destinations {
		if d.ID == "" {
			errs = append(errs, errors.ErrValidationError(fmt.Sprintf("destinations[%d].id", i), errors.ErrEmptyID))
			continue
		}
		if _, dup := seen[d.ID]; dup {
			errs = append(errs, errors.ErrDestinationExists(d.ID))
			continue
		}
		seen[d.ID] = struct{}{}

		if d.Properties.Has(PropertyScope) {
			if _, err := ParseScope(d.Properties.String(PropertyScope, "")); err != nil {
				errs = append(errs, errors.ErrValidationError(fmt.Sprintf("destinations[%d].properties.scope", i), err))
			}
		}
	}

	return errors.Join(errs...)
}
