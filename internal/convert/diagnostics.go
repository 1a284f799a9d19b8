// Package convert assembles normalized source records into canonical event
// graphs and drives the per-source converters (CSS rows, Antelope ORB
// packets, database-to-QuakeML).
//
// Failures are local by design: a bad record is dropped with a diagnostic
// and conversion of the remaining records continues. Diagnostics are
// returned alongside the best-effort graph, never instead of it. The only
// hard failure is an empty input stream.
package convert

import (
	"errors"
	"fmt"

	"github.com/seisops/db2qml/internal/catalog"
)

// ErrNoRecords is the hard failure for an empty input stream: there is
// nothing to convert.
var ErrNoRecords = errors.New("convert: no input records")

// IdentityConflictError reports a cross-reference to a source identifier
// never seen in this run. Magnitude records raising it are buffered and
// retried at finalize; still-unresolved records are dropped with a warning.
type IdentityConflictError struct {
	Ref    SourceKey
	Source catalog.Provenance
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("identity conflict: %s references unknown %s/%s id %d",
		e.Source, e.Ref.Schema, e.Ref.Table, e.Ref.ID)
}

// InvalidEntityError reports a graph invariant violation at build time.
// The offending record is dropped; the event keeps building.
type InvalidEntityError struct {
	Source catalog.Provenance
	Reason string
}

func (e *InvalidEntityError) Error() string {
	return fmt.Sprintf("invalid entity from %s: %s", e.Source, e.Reason)
}

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is one per-record conversion report.
type Diagnostic struct {
	Severity Severity
	Source   catalog.Provenance
	Err      error // typed: MalformedRecordError, IdentityConflictError, ...
	Message  string
}

func (d Diagnostic) String() string {
	if d.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", d.Severity, d.Message, d.Err)
	}
	return fmt.Sprintf("[%s] %s (%s)", d.Severity, d.Message, d.Source)
}
