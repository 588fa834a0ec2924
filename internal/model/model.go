// Package model defines the core type for pct: a history record pairing the
// point cloud a command read with the point cloud it produced.
package model

import "errors"

// Record is one processing step. Output is nil when the step only viewed
// Input and produced nothing.
type Record struct {
	Input  string  `json:"input"`
	Output *string `json:"output"`
}

// NewRecord returns a record for a step that read input and wrote output.
// An empty output yields a view-only record.
func NewRecord(input, output string) Record {
	r := Record{Input: input}
	if output != "" {
		r.Output = &output
	}
	return r
}

// ViewRecord returns a record for an explicitly visualized path.
func ViewRecord(path string) Record {
	return Record{Input: path}
}

// HasOutput reports whether the step produced a file.
func (r Record) HasOutput() bool {
	return r.Output != nil && *r.Output != ""
}

// OutputPath returns the produced file, or "" for view-only records.
func (r Record) OutputPath() string {
	if r.Output == nil {
		return ""
	}
	return *r.Output
}

// Validate checks that the record names an input file.
func (r Record) Validate() error {
	if r.Input == "" {
		return errors.New("record has empty input")
	}
	return nil
}
