// Package db reads CSS3.0 catalog tables from PostgreSQL and hands raw
// rows to the schema normalizer. SQL NULLs become absent row keys, so the
// normalizer's sentinel handling sees them the same way it sees a "-" in a
// flat file.
package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/seisops/db2qml/internal/schema"
)

// DBTX is the query surface shared by pgx pools, connections and
// transactions.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound reports a lookup with no matching row.
var ErrNotFound = errors.New("db: not found")

// Reader fetches catalog rows for one event.
type Reader struct {
	db DBTX
}

// NewReader returns a reader over the given connection or pool.
func NewReader(db DBTX) *Reader {
	return &Reader{db: db}
}

const originQuery = `
SELECT o.orid, o.evid, o.lat, o.lon, o.depth, o.time,
       o.nass, o.ndef, o.etype, o.auth, o.algorithm,
       o.ml, o.mb, o.ms, o.lddate,
       e.smajax, e.sminax, e.strike, e.sdepth, e.stime, e.sdobs, e.conf
FROM origin o
LEFT JOIN origerr e ON e.orid = o.orid
WHERE o.evid = $1
ORDER BY o.lddate ASC`

// OriginRows fetches all origin rows for an event, joined with their error
// ellipses, ordered oldest load date first so the newest row ends up
// preferred by feed order.
func (r *Reader) OriginRows(ctx context.Context, evid int64) ([]schema.Row, error) {
	rows, err := r.db.Query(ctx, originQuery, evid)
	if err != nil {
		return nil, fmt.Errorf("db: query origins for evid %d: %w", evid, err)
	}
	defer rows.Close()

	cols := []string{
		"orid", "evid", "lat", "lon", "depth", "time",
		"nass", "ndef", "etype", "auth", "algorithm",
		"ml", "mb", "ms", "lddate",
		"smajax", "sminax", "strike", "sdepth", "stime", "sdobs", "conf",
	}
	return scanRows(rows, cols)
}

const netmagQuery = `
SELECT magid, orid, evid, magtype, magnitude, uncertainty, nsta, auth, lddate
FROM netmag
WHERE orid = ANY($1)
ORDER BY lddate ASC`

// NetmagRows fetches all network magnitude rows for the given origins.
func (r *Reader) NetmagRows(ctx context.Context, orids []int64) ([]schema.Row, error) {
	rows, err := r.db.Query(ctx, netmagQuery, orids)
	if err != nil {
		return nil, fmt.Errorf("db: query netmag: %w", err)
	}
	defer rows.Close()

	cols := []string{"magid", "orid", "evid", "magtype", "magnitude", "uncertainty", "nsta", "auth", "lddate"}
	return scanRows(rows, cols)
}

const fplaneQuery = `
SELECT mechid, orid, str1, dip1, rake1, str2, dip2, rake2,
       taxazm, taxplg, paxazm, paxplg, algorithm, auth, lddate
FROM fplane
WHERE orid = ANY($1)
ORDER BY lddate ASC`

// FplaneRows fetches the first-motion mechanism rows for the given origins.
func (r *Reader) FplaneRows(ctx context.Context, orids []int64) ([]schema.Row, error) {
	rows, err := r.db.Query(ctx, fplaneQuery, orids)
	if err != nil {
		return nil, fmt.Errorf("db: query fplane: %w", err)
	}
	defer rows.Close()

	cols := []string{
		"mechid", "orid", "str1", "dip1", "rake1", "str2", "dip2", "rake2",
		"taxazm", "taxplg", "paxazm", "paxplg", "algorithm", "auth", "lddate",
	}
	return scanRows(rows, cols)
}

const eventQuery = `
SELECT evid, prefor, evname, auth, lddate
FROM event
WHERE evid = $1`

// EventRow fetches the event table row, or ErrNotFound.
func (r *Reader) EventRow(ctx context.Context, evid int64) (schema.Row, error) {
	rows, err := r.db.Query(ctx, eventQuery, evid)
	if err != nil {
		return nil, fmt.Errorf("db: query event %d: %w", evid, err)
	}
	defer rows.Close()

	out, err := scanRows(rows, []string{"evid", "prefor", "evname", "auth", "lddate"})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("db: event %d: %w", evid, ErrNotFound)
	}
	return out[0], nil
}

// EvidForOrid resolves the event an origin belongs to, or ErrNotFound.
func (r *Reader) EvidForOrid(ctx context.Context, orid int64) (int64, error) {
	var evid pgtype.Int8
	err := r.db.QueryRow(ctx, `SELECT evid FROM origin WHERE orid = $1`, orid).Scan(&evid)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("db: orid %d: %w", orid, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("db: resolve evid for orid %d: %w", orid, err)
	}
	if !evid.Valid {
		return 0, fmt.Errorf("db: orid %d has no evid: %w", orid, ErrNotFound)
	}
	return evid.Int64, nil
}

// Evids lists all event ids, newest first, for batch conversion.
func (r *Reader) Evids(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT evid FROM event ORDER BY lddate DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: list evids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var evid int64
		if err := rows.Scan(&evid); err != nil {
			return nil, fmt.Errorf("db: scan evid: %w", err)
		}
		out = append(out, evid)
	}
	return out, rows.Err()
}

// scanRows converts each SQL row into a string-keyed row. NULL columns are
// left out of the map entirely.
func scanRows(rows pgx.Rows, cols []string) ([]schema.Row, error) {
	var out []schema.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("db: read row: %w", err)
		}
		if len(vals) != len(cols) {
			return nil, fmt.Errorf("db: row has %d columns, want %d", len(vals), len(cols))
		}
		row := make(schema.Row, len(cols))
		for i, col := range cols {
			if s, ok := stringify(vals[i]); ok {
				row[col] = s
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// stringify renders one SQL value for the normalizer; NULL reports false.
func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return "", false
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64), true
	default:
		return fmt.Sprint(x), true
	}
}
