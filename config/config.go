// Package config reads pipeline files: a YAML document naming a source,
// a list of stages in the query syntax, and an output format.
//
//	name: low-rate
//	source: murders
//	stages:
//	  - derive rate = total / population * 100000
//	  - filter { rate <= 0.71 }
//	  - project state rate
//	output:
//	  format: csv
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/parser"
	"github.com/razeghi71/wrangle/writer"
	"gopkg.in/yaml.v3"
)

// File is a parsed pipeline file.
type File struct {
	Name   string   `yaml:"name"`
	Source string   `yaml:"source"`
	Stages []string `yaml:"stages"`
	Output Output   `yaml:"output"`

	// dir is the directory of the file, used to resolve a relative source.
	dir string
}

// Output selects how the result is written.
type Output struct {
	Format string `yaml:"format"`
}

// ParseError reports a pipeline file that is not valid YAML or has fields
// of the wrong shape.
type ParseError struct {
	// Path is the file path (empty if parsed from bytes)
	Path string
	// Line is the line number (1-based, 0 if unknown)
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationError reports a well-formed file with a missing or bad field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates a pipeline file.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	f, err := Parse(content)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	f.dir = filepath.Dir(path)
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a pipeline file. Unknown fields are rejected.
func Parse(content []byte) (*File, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &ParseError{Message: "empty content: expected a YAML mapping"}
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Message: "empty content: expected a YAML mapping"}
		}
		return nil, yamlError(err)
	}
	return &f, nil
}

// yamlError extracts the line number yaml.v3 puts in its messages
// ("yaml: line X: ...").
func yamlError(err error) *ParseError {
	pe := &ParseError{Message: err.Error()}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		pe.Message = strings.Join(typeErr.Errors, "; ")
		fmt.Sscanf(typeErr.Errors[0], "line %d:", &pe.Line)
		return pe
	}
	if strings.HasPrefix(err.Error(), "yaml: line ") {
		var line int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
			pe.Line = line
		}
	}
	return pe
}

// Validate checks required fields and the output format. It does not parse
// the stages; Query does.
func (f *File) Validate() error {
	var errs []error
	if strings.TrimSpace(f.Source) == "" {
		errs = append(errs, &ValidationError{Field: "source", Message: "is required"})
	}
	for i, s := range f.Stages {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, &ValidationError{Field: fmt.Sprintf("stages[%d]", i), Message: "is empty"})
		}
	}
	if _, err := writer.ParseFormat(f.Output.Format); err != nil {
		errs = append(errs, &ValidationError{Field: "output.format", Message: err.Error()})
	}
	return errors.Join(errs...)
}

// SourcePath returns the source to load. A relative file path is taken
// relative to the pipeline file; a bare name (a bundled dataset) is kept.
func (f *File) SourcePath() string {
	if f.dir == "" || filepath.IsAbs(f.Source) || filepath.Ext(f.Source) == "" {
		return f.Source
	}
	return filepath.Join(f.dir, f.Source)
}

// Format returns the output format, defaulting to text.
func (f *File) Format() writer.Format {
	format, err := writer.ParseFormat(f.Output.Format)
	if err != nil {
		return writer.Text
	}
	return format
}

// Query parses every stage and returns them as a query over SourcePath.
func (f *File) Query() (*ast.Query, error) {
	q := &ast.Query{Source: f.SourcePath()}
	for i, s := range f.Stages {
		st, err := parser.ParseStage(s)
		if err != nil {
			return nil, fmt.Errorf("stages[%d] %q: %w", i, s, err)
		}
		q.Stages = append(q.Stages, st)
	}
	return q, nil
}

// PipelineName returns Name, or the source when Name is empty.
func (f *File) PipelineName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Source
}
