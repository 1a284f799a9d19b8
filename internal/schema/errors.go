package schema

import "fmt"

// MalformedRecordError reports a source record that failed normalization:
// a required field is absent (or holds the table's null sentinel), or a
// field failed type coercion. The record is dropped by callers; conversion
// of the remaining records continues.
type MalformedRecordError struct {
	Table  string
	Field  string
	Value  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("malformed %s record: field %q value %q: %s", e.Table, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("malformed %s record: field %q: %s", e.Table, e.Field, e.Reason)
}
