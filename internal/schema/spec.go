// Package schema normalizes raw source records into typed, unit-normalized
// intermediate records. One normalizer exists per source table (CSS3.0
// origin with its origerr join, netmag, fplane, event); Antelope ORB packets
// carry CSS-shaped payloads and reuse the same table specifications.
//
// Normalization is driven by per-table field specifications: expected type,
// required flag, and the source's in-band null sentinel. Sentinel values
// translate to explicit absent markers, never to zero. Unit normalization
// (CSS kilometers to meters, confidence fraction to percent) happens here
// so the graph only ever sees SI-consistent values.
package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FieldType is the expected data type for a source field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldFloat
	FieldTime // epoch seconds, carried as float64
)

// FieldSpec defines coercion rules for a single source field.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Required bool
	// Null is the source's null sentinel literal for this field, compared
	// numerically for numeric types ("-999.0000" matches "-999"). Empty
	// means the field has no in-band sentinel.
	Null string
}

// TableSpec describes one source table.
type TableSpec struct {
	Name   string
	Fields []FieldSpec
}

// Field returns the spec for a named field.
func (t TableSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

var (
	registry   = make(map[string]TableSpec)
	registryMu sync.RWMutex
)

// Register adds a table specification to the registry.
// Panics if the table is already registered.
func Register(spec TableSpec) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[spec.Name]; exists {
		panic(fmt.Sprintf("schema: table already registered: %s", spec.Name))
	}
	registry[spec.Name] = spec
}

// Table returns a registered table specification.
func Table(name string) (TableSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	spec, ok := registry[name]
	return spec, ok
}

// Tables returns all registered table names, sorted.
func Tables() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Row is one raw source record: column name to raw string value. A missing
// key means the source never supplied the field; readers map SQL NULL the
// same way.
type Row map[string]string

// value is a coerced field: at most one of f/i/s is meaningful per type,
// valid is false for absent fields and matched null sentinels.
type value struct {
	f     float64
	i     int64
	s     string
	valid bool
}

// coerce applies one FieldSpec to a raw row.
func coerce(table string, row Row, spec FieldSpec) (value, error) {
	raw, ok := row[spec.Name]
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" || raw == "-" {
		if spec.Required {
			return value{}, &MalformedRecordError{Table: table, Field: spec.Name, Reason: "required field absent"}
		}
		return value{}, nil
	}

	switch spec.Type {
	case FieldText:
		if spec.Null != "" && raw == spec.Null {
			return value{}, nil
		}
		return value{s: raw, valid: true}, nil

	case FieldInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return value{}, &MalformedRecordError{Table: table, Field: spec.Name, Value: raw, Reason: "not an integer"}
		}
		if spec.Null != "" {
			if null, err := strconv.ParseInt(spec.Null, 10, 64); err == nil && i == null {
				if spec.Required {
					return value{}, &MalformedRecordError{Table: table, Field: spec.Name, Value: raw, Reason: "required field holds null sentinel"}
				}
				return value{}, nil
			}
		}
		return value{i: i, valid: true}, nil

	case FieldFloat, FieldTime:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value{}, &MalformedRecordError{Table: table, Field: spec.Name, Value: raw, Reason: "not a number"}
		}
		if spec.Null != "" {
			null, err := strconv.ParseFloat(spec.Null, 64)
			if err == nil && floatsEqual(f, null) {
				if spec.Required {
					return value{}, &MalformedRecordError{Table: table, Field: spec.Name, Value: raw, Reason: "required field holds null sentinel"}
				}
				return value{}, nil
			}
		}
		return value{f: f, valid: true}, nil
	}

	return value{}, &MalformedRecordError{Table: table, Field: spec.Name, Reason: "unknown field type"}
}

// floatsEqual compares a parsed value against a null sentinel. Sentinels
// are exact literals in well-formed sources, but flat files sometimes carry
// fewer decimals than the schema declares.
func floatsEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
