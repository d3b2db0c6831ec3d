package fte

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Format is a named (regex, fixed slice) pair.
type Format struct {
	Name       string `yaml:"name"`
	Regex      string `yaml:"regex"`
	FixedSlice int    `yaml:"fixed_slice"`
}

// Validate checks the fields of f without compiling the regex.
func (f Format) Validate() error {
	if f.Name == "" {
		return errors.New("format name cannot be empty")
	}
	if f.Regex == "" {
		return fmt.Errorf("format %q: regex cannot be empty", f.Name)
	}
	if f.FixedSlice < 1 {
		return fmt.Errorf("format %q: fixed slice must be positive, got %d", f.Name, f.FixedSlice)
	}
	return nil
}

// Formats maps format names to formats.
type Formats map[string]Format

// Lookup returns the format called name.
func (fs Formats) Lookup(name string) (Format, error) {
	f, ok := fs[name]
	if !ok {
		return Format{}, NewError(InvalidInput, "formats", fmt.Errorf("unknown format %q", name))
	}
	return f, nil
}

// Names returns the sorted format names.
func (fs Formats) Names() []string {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type formatsFile struct {
	Formats []Format `yaml:"formats"`
}

// LoadFormats reads a YAML document of the form
//
//	formats:
//	  - name: lower-alpha-64
//	    regex: '^[a-z]{0,64}$'
//	    fixed_slice: 64
//
// Every format is validated; duplicate names are rejected.
func LoadFormats(r io.Reader) (Formats, error) {
	var file formatsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, NewError(InvalidInput, "formats", fmt.Errorf("failed to parse formats: %w", err))
	}
	fs := make(Formats, len(file.Formats))
	for _, f := range file.Formats {
		if err := f.Validate(); err != nil {
			return nil, NewError(InvalidInput, "formats", err)
		}
		if _, dup := fs[f.Name]; dup {
			return nil, NewError(InvalidInput, "formats", fmt.Errorf("duplicate format %q", f.Name))
		}
		fs[f.Name] = f
	}
	return fs, nil
}

//go:embed formats.yaml
var defaultFormats []byte

// DefaultFormats returns the built-in formats.
func DefaultFormats() Formats {
	fs, err := LoadFormats(bytes.NewReader(defaultFormats))
	if err != nil {
		panic(fmt.Sprintf("fte: built-in formats: %v", err))
	}
	return fs
}
