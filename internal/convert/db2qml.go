package convert

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/db"
	"github.com/seisops/db2qml/internal/quakeml"
	"github.com/seisops/db2qml/internal/schema"
)

// DBConverter drives the database-to-QuakeML path: it reads the CSS tables
// for an event, assembles the canonical graph and emits the QuakeML
// document.
type DBConverter struct {
	reader *db.Reader
	opts   Options
}

// NewDBConverter returns a converter reading through the given database
// reader.
func NewDBConverter(reader *db.Reader, opts Options) *DBConverter {
	return &DBConverter{reader: reader, opts: opts.withDefaults()}
}

// BuildEvent assembles the canonical graph for one event id.
func (c *DBConverter) BuildEvent(ctx context.Context, evid int64) (*catalog.Event, []Diagnostic, error) {
	b := NewBuilder(c.opts)

	originRows, err := c.reader.OriginRows(ctx, evid)
	if err != nil {
		return nil, nil, err
	}
	if len(originRows) == 0 {
		return nil, nil, fmt.Errorf("evid %d: %w", evid, ErrNoRecords)
	}

	var orids []int64
	for _, row := range originRows {
		rec, err := schema.Normalize(schema.TableOrigin, row, catalog.SchemaCSS)
		if err != nil {
			b.warn(catalog.Provenance{Schema: catalog.SchemaCSS, Table: schema.TableOrigin}, err, "row dropped")
			continue
		}
		o := rec.(*schema.OriginRecord)
		if b.AddOrigin(o) == nil {
			orids = append(orids, o.Orid)
		}
	}

	if len(orids) > 0 {
		netmagRows, err := c.reader.NetmagRows(ctx, orids)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range netmagRows {
			rec, err := schema.Normalize(schema.TableNetmag, row, catalog.SchemaCSS)
			if err != nil {
				b.warn(catalog.Provenance{Schema: catalog.SchemaCSS, Table: schema.TableNetmag}, err, "row dropped")
				continue
			}
			b.AddMagnitude(rec.(*schema.NetmagRecord))
		}

		fplaneRows, err := c.reader.FplaneRows(ctx, orids)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range fplaneRows {
			rec, err := schema.Normalize(schema.TableFplane, row, catalog.SchemaCSS)
			if err != nil {
				b.warn(catalog.Provenance{Schema: catalog.SchemaCSS, Table: schema.TableFplane}, err, "row dropped")
				continue
			}
			b.AddFocalMechanism(rec.(*schema.FplaneRecord))
		}
	}

	eventRow, err := c.reader.EventRow(ctx, evid)
	switch {
	case errors.Is(err, db.ErrNotFound):
		// Orphan origins still convert; identity falls back to the evid
		// carried on the origin rows.
	case err != nil:
		return nil, nil, err
	default:
		rec, nerr := schema.Normalize(schema.TableEvent, eventRow, catalog.SchemaCSS)
		if nerr != nil {
			b.warn(catalog.Provenance{Schema: catalog.SchemaCSS, Table: schema.TableEvent}, nerr, "row dropped")
		} else {
			b.AddEvent(rec.(*schema.EventRecord))
		}
	}

	return b.Finalize()
}

// BuildEventByOrid resolves the owning event of an origin and builds it.
func (c *DBConverter) BuildEventByOrid(ctx context.Context, orid int64) (*catalog.Event, []Diagnostic, error) {
	evid, err := c.reader.EvidForOrid(ctx, orid)
	if err != nil {
		return nil, nil, err
	}
	return c.BuildEvent(ctx, evid)
}

// QuakeML builds the event and renders its QuakeML document.
func (c *DBConverter) QuakeML(ctx context.Context, evid int64) ([]byte, []Diagnostic, error) {
	ev, diags, err := c.BuildEvent(ctx, evid)
	if err != nil {
		return nil, diags, err
	}
	data, err := quakeml.Render(quakeml.Document(ev))
	return data, diags, err
}

// DeleteEvent builds the retraction stub announcing that an event no
// longer exists in the catalog. The stub carries only identity and the
// "not existing" type.
func (c *DBConverter) DeleteEvent(evid int64) *catalog.Event {
	version := strconv.FormatInt(evid, 10)
	ev := catalog.NewEvent(catalog.RID(c.opts.Authority, "Event", version))
	ev.Type = "not existing"
	ev.Info = catalog.CreationInfo{AgencyID: c.opts.AgencyID, Version: version}
	ev.ANSS = anssAttributes(c.opts.AgencyID, catalog.Int(evid))
	ev.Freeze()
	return ev
}

// Evids lists recent event ids for batch conversion.
func (c *DBConverter) Evids(ctx context.Context, limit int) ([]int64, error) {
	return c.reader.Evids(ctx, limit)
}

// BatchResult is one event's outcome in a batch conversion.
type BatchResult struct {
	Evid        int64
	Event       *catalog.Event
	Diagnostics []Diagnostic
	Err         error
}

// ConvertBatch builds many events concurrently. Each worker owns its own
// builder and resolver; per-event failures land in the result, never abort
// the batch. Results keep input order.
func (c *DBConverter) ConvertBatch(ctx context.Context, evids []int64, workers int) ([]BatchResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]BatchResult, len(evids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, evid := range evids {
		g.Go(func() error {
			ev, diags, err := c.BuildEvent(ctx, evid)
			results[i] = BatchResult{Evid: evid, Event: ev, Diagnostics: diags, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
