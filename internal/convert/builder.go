package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/ichinose"
	"github.com/seisops/db2qml/internal/schema"
)

// Builder assembles normalized records into one canonical event graph.
//
// Records arrive in any order: a magnitude referencing an origin not yet
// seen is buffered and retried at Finalize, so converters never presort
// input. Invariant violations drop the offending record with a diagnostic
// and the event keeps building. One builder serves one event and is not
// safe for concurrent use; batch drivers run one builder per worker.
type Builder struct {
	opts Options
	res  *Resolver

	origins    []*catalog.Origin
	originRecs map[catalog.ResourceID]*schema.OriginRecord
	magnitudes []*catalog.Magnitude
	magRecs    map[catalog.ResourceID]*schema.NetmagRecord
	pending    []*schema.NetmagRecord

	mechRecs  map[int64]*schema.FplaneRecord
	mechOrder []int64

	evid        catalog.OptInt
	prefor      catalog.OptInt
	description string

	preferredMagID catalog.ResourceID

	diags     []Diagnostic
	finalized bool
}

// NewBuilder returns an empty builder scoped to one conversion run.
func NewBuilder(opts Options) *Builder {
	opts = opts.withDefaults()
	return &Builder{
		opts:       opts,
		res:        NewResolver(opts.Authority),
		originRecs: make(map[catalog.ResourceID]*schema.OriginRecord),
		magRecs:    make(map[catalog.ResourceID]*schema.NetmagRecord),
		mechRecs:   make(map[int64]*schema.FplaneRecord),
	}
}

// Resolver exposes the run-scoped identity resolver.
func (b *Builder) Resolver() *Resolver { return b.res }

// Diagnostics returns the per-record reports accumulated so far.
func (b *Builder) Diagnostics() []Diagnostic { return b.diags }

func (b *Builder) warn(source catalog.Provenance, err error, msg string) {
	b.diags = append(b.diags, Diagnostic{Severity: SeverityWarning, Source: source, Err: err, Message: msg})
}

func (b *Builder) info(source catalog.Provenance, msg string) {
	b.diags = append(b.diags, Diagnostic{Severity: SeverityInfo, Source: source, Message: msg})
}

// AddOrigin validates and links an origin record. A later sighting of the
// same source key merges by source precedence: the new record replaces the
// entity's fields when its source ranks at least as high, keeping the
// canonical identifier stable.
func (b *Builder) AddOrigin(rec *schema.OriginRecord) error {
	if err := b.checkOrigin(rec); err != nil {
		b.warn(rec.Prov(), err, "origin dropped")
		return err
	}

	key := CSSKey(schema.TableOrigin, rec.Orid)
	if id, seen := b.res.Lookup(key); seen {
		return b.mergeOrigin(id, rec)
	}

	id := b.res.Resolve(key, "Origin")
	o := originFromRecord(rec, id, b.opts.AgencyID)
	b.origins = append(b.origins, o)
	b.originRecs[id] = rec
	if rec.Evid.Valid && !b.evid.Valid {
		b.evid = rec.Evid
	}
	return nil
}

// checkOrigin enforces the build-time origin invariants: time and location
// are mutually required and must be plausible.
func (b *Builder) checkOrigin(rec *schema.OriginRecord) error {
	switch {
	case rec.Time == 0:
		return &InvalidEntityError{Source: rec.Prov(), Reason: "origin without time"}
	case math.Abs(rec.Lat) > 90:
		return &InvalidEntityError{Source: rec.Prov(), Reason: fmt.Sprintf("latitude %g out of range", rec.Lat)}
	case math.Abs(rec.Lon) > 180:
		return &InvalidEntityError{Source: rec.Prov(), Reason: fmt.Sprintf("longitude %g out of range", rec.Lon)}
	}
	return nil
}

// mergeOrigin applies last-writer-wins per source precedence to a repeat
// sighting of the same canonical origin.
func (b *Builder) mergeOrigin(id catalog.ResourceID, rec *schema.OriginRecord) error {
	prev := b.originRecs[id]
	if prev != nil && b.opts.rank(rec.Prov().Schema) > b.opts.rank(prev.Prov().Schema) {
		b.info(rec.Prov(), "origin update ignored: lower source precedence")
		return nil
	}
	replacement := originFromRecord(rec, id, b.opts.AgencyID)
	for i, o := range b.origins {
		if o.ID == id {
			b.origins[i] = replacement
			break
		}
	}
	b.originRecs[id] = rec
	b.info(rec.Prov(), "origin updated by later sighting")
	return nil
}

// AddMagnitude validates and links a netmag record. Unresolvable origin
// references are buffered for retry at Finalize. A repeat sighting of the
// same magid merges by source precedence, exactly like origins.
func (b *Builder) AddMagnitude(rec *schema.NetmagRecord) error {
	if rec.Magtype == "" {
		err := &InvalidEntityError{Source: rec.Prov(), Reason: "magnitude without type"}
		b.warn(rec.Prov(), err, "magnitude dropped")
		return err
	}
	if math.Abs(rec.Magnitude) > 12 {
		err := &InvalidEntityError{Source: rec.Prov(), Reason: fmt.Sprintf("magnitude value %g implausible", rec.Magnitude)}
		b.warn(rec.Prov(), err, "magnitude dropped")
		return err
	}

	originID, ok := b.res.Lookup(CSSKey(schema.TableOrigin, rec.Orid))
	if !ok {
		// Forward reference; retried at Finalize.
		b.pending = append(b.pending, rec)
		return nil
	}
	b.linkMagnitude(rec, originID)
	return nil
}

func (b *Builder) linkMagnitude(rec *schema.NetmagRecord, originID catalog.ResourceID) {
	key := CSSKey(schema.TableNetmag, rec.Magid)
	if id, seen := b.res.Lookup(key); seen {
		b.mergeMagnitude(id, rec, originID)
		return
	}
	id := b.res.Resolve(key, "Magnitude", rec.Magtype)
	b.magnitudes = append(b.magnitudes, magnitudeFromRecord(rec, id, originID, b.opts.AgencyID))
	b.magRecs[id] = rec
	if rec.Evid.Valid && !b.evid.Valid {
		b.evid = rec.Evid
	}
}

// mergeMagnitude applies last-writer-wins per source precedence to a repeat
// sighting of the same canonical magnitude, keeping one entity per magid.
func (b *Builder) mergeMagnitude(id catalog.ResourceID, rec *schema.NetmagRecord, originID catalog.ResourceID) {
	prev := b.magRecs[id]
	if prev != nil && b.opts.rank(rec.Prov().Schema) > b.opts.rank(prev.Prov().Schema) {
		b.info(rec.Prov(), "magnitude update ignored: lower source precedence")
		return
	}
	replacement := magnitudeFromRecord(rec, id, originID, b.opts.AgencyID)
	for i, m := range b.magnitudes {
		if m.ID == id {
			b.magnitudes[i] = replacement
			break
		}
	}
	b.magRecs[id] = rec
	b.info(rec.Prov(), "magnitude updated by later sighting")
}

// AddFocalMechanism records a first-motion fplane record. The mechanism's
// origin reference is resolved at Finalize, so fplane rows may arrive in
// any order; a repeat sighting of the same mechid merges by source
// precedence.
func (b *Builder) AddFocalMechanism(rec *schema.FplaneRecord) error {
	if rec.Dip1 < 0 || rec.Dip1 > 90 || rec.Dip2 < 0 || rec.Dip2 > 90 {
		err := &InvalidEntityError{Source: rec.Prov(), Reason: "nodal plane dip out of range"}
		b.warn(rec.Prov(), err, "focal mechanism dropped")
		return err
	}
	if prev, seen := b.mechRecs[rec.Mechid]; seen {
		if b.opts.rank(rec.Prov().Schema) > b.opts.rank(prev.Prov().Schema) {
			b.info(rec.Prov(), "focal mechanism update ignored: lower source precedence")
			return nil
		}
		b.mechRecs[rec.Mechid] = rec
		b.info(rec.Prov(), "focal mechanism updated by later sighting")
		return nil
	}
	b.mechRecs[rec.Mechid] = rec
	b.mechOrder = append(b.mechOrder, rec.Mechid)
	return nil
}

// AddEvent records event-table fields: the canonical event id, the
// designated preferred origin and the description text.
func (b *Builder) AddEvent(rec *schema.EventRecord) {
	if !b.evid.Valid {
		b.evid = catalog.Int(rec.Evid)
	}
	if rec.Prefor.Valid {
		b.prefor = rec.Prefor
	}
	if rec.Evname != "" {
		b.description = rec.Evname
	}
}

// SetPreferredOrigin designates the preferred origin by source orid. The
// reference is resolved at Finalize so it may precede the origin itself.
func (b *Builder) SetPreferredOrigin(orid int64) {
	b.prefor = catalog.Int(orid)
}

// AddMomentTensor attaches an Ichinose solution to the event: a derived
// origin at the centroid, a moment magnitude owning the MomentTensor, and
// the tensor itself with components and nodal planes kept mutually
// consistent. A degenerate (null) tensor drops only the MomentTensor; the
// magnitude is retained when the solution carries an Mw.
func (b *Builder) AddMomentTensor(sol *ichinose.Solution) error {
	prov := sol.Prov()

	tensor := sol.Tensor
	if tensor == nil && sol.Plane1 != nil {
		m0, ok := solutionMoment(sol)
		if !ok {
			err := &InvalidEntityError{Source: prov, Reason: "nodal planes without scalar moment or Mw"}
			b.warn(prov, err, "moment tensor dropped")
			return err
		}
		t := ichinose.TensorFromPlane(*sol.Plane1, m0)
		tensor = &t
	}

	var dec *ichinose.Decomposition
	degenerate := false
	if tensor != nil {
		var err error
		dec, err = ichinose.Decompose(*tensor)
		if err != nil {
			degenerate = true
			b.warn(prov, err, "moment tensor omitted")
		}
	}

	mw, ok := solutionMw(sol, dec)
	if !ok {
		err := &InvalidEntityError{Source: prov, Reason: "solution with neither Mw nor a usable tensor"}
		b.warn(prov, err, "moment solution dropped")
		return err
	}

	version := ""
	if sol.Orid.Valid {
		version = strconv.FormatInt(sol.Orid.Int64, 10)
	}
	mode, status := "automatic", "preliminary"
	if sol.Reviewed {
		mode, status = "manual", "reviewed"
	}
	info := catalog.CreationInfo{AgencyID: b.opts.AgencyID, Version: version, CreationTime: sol.CreatedAt}

	// Derived centroid origin, distinct from any network origin with the
	// same orid.
	originID := b.mtOriginID(sol, version)
	origin := &catalog.Origin{
		ID:               originID,
		Time:             sol.Time,
		Latitude:         sol.Lat,
		Longitude:        sol.Lon,
		Depth:            sol.Depth,
		DepthType:        "from moment tensor inversion",
		EvaluationMode:   mode,
		EvaluationStatus: status,
		Info:             info,
		Source:           prov,
	}
	b.origins = append(b.origins, origin)

	magID := catalog.RID(b.opts.Authority, "Magnitude", "Mw", version)
	if version == "" {
		magID = catalog.FreshRID(b.opts.Authority, "Magnitude/Mw")
	}
	mag := &catalog.Magnitude{
		ID:               magID,
		OriginID:         originID,
		Type:             "Mw",
		Value:            mw,
		StationCount:     sol.StationCount,
		EvaluationMode:   mode,
		EvaluationStatus: status,
		Info:             info,
		Source:           prov,
	}

	if !degenerate && tensor != nil {
		mt := &catalog.MomentTensor{
			ID:                b.mtID(version),
			DerivedOriginID:   originID,
			ScalarMoment:      dec.M0,
			Tensor:            tensor,
			Plane1:            dec.Plane1,
			Plane2:            dec.Plane2,
			PercentDC:         catalog.Float(dec.PercentDC),
			PercentCLVD:       catalog.Float(dec.PercentCLVD),
			PercentISO:        catalog.Float(dec.PercentISO),
			Variance:          sol.Epsilon,
			VarianceReduction: sol.VarianceReduction,
			AzimuthalGap:      sol.AzimuthalGap,
			StationCount:      sol.StationCount,
			Category:          sol.Category,
			EvaluationMode:    mode,
			EvaluationStatus:  status,
			Info:              info,
			Source:            prov,
		}
		if sol.M0.Valid {
			mt.ScalarMoment = sol.M0.Float64
		}
		// Source-reported planes and percentages win over derived ones.
		if sol.Plane1 != nil {
			mt.Plane1 = *sol.Plane1
		}
		if sol.Plane2 != nil {
			mt.Plane2 = *sol.Plane2
		}
		if sol.PercentDC.Valid {
			mt.PercentDC = sol.PercentDC
		}
		if sol.PercentCLVD.Valid {
			mt.PercentCLVD = sol.PercentCLVD
		}
		mag.MomentTensor = mt
	}

	b.magnitudes = append(b.magnitudes, mag)
	// A moment solution is the preferred magnitude when present.
	b.preferredMagID = mag.ID

	if sol.Evid.Valid && !b.evid.Valid {
		b.evid = sol.Evid
	}
	return nil
}

func (b *Builder) mtOriginID(sol *ichinose.Solution, version string) catalog.ResourceID {
	if version == "" {
		return catalog.FreshRID(b.opts.Authority, "Origin")
	}
	id := catalog.ResourceID(catalog.RID(b.opts.Authority, "Origin", version).String() + "/mt")
	b.res.Bind(SourceKey{Schema: catalog.SchemaIchinose, Table: schema.TableOrigin, ID: sol.Orid.Int64}, id)
	return id
}

func (b *Builder) mtID(version string) catalog.ResourceID {
	if version == "" {
		return catalog.FreshRID(b.opts.Authority, "MomentTensor")
	}
	return catalog.RID(b.opts.Authority, "MomentTensor", version)
}

// solutionMoment returns the scalar moment in N-m, deriving it from Mw
// when the block omits Mo.
func solutionMoment(sol *ichinose.Solution) (float64, bool) {
	if sol.M0.Valid {
		return sol.M0.Float64, true
	}
	if sol.Mw.Valid {
		return math.Pow(10, 1.5*sol.Mw.Float64+9.1), true
	}
	return 0, false
}

func solutionMw(sol *ichinose.Solution, dec *ichinose.Decomposition) (float64, bool) {
	if sol.Mw.Valid {
		return sol.Mw.Float64, true
	}
	if dec != nil {
		return dec.Mw, true
	}
	return 0, false
}

// Finalize runs the closure pass and freezes the graph: buffered forward
// references are resolved or dropped (or attached to a synthesized
// placeholder origin when configured), the preferred origin and magnitude
// are designated, and the event identity and type are fixed.
//
// Finalize returns the best-effort event together with all accumulated
// diagnostics; it only errors when the assembled graph violates its own
// invariants, which indicates a builder bug rather than bad input.
func (b *Builder) Finalize() (*catalog.Event, []Diagnostic, error) {
	if b.finalized {
		return nil, b.diags, fmt.Errorf("convert: builder already finalized")
	}
	b.finalized = true

	b.resolvePending()
	b.fallbackMagnitudes()

	ev := catalog.NewEvent("")

	for _, o := range b.origins {
		if err := ev.AppendOrigin(o); err != nil {
			return nil, b.diags, err
		}
	}
	for _, m := range b.magnitudes {
		if err := ev.AppendMagnitude(m); err != nil {
			return nil, b.diags, err
		}
	}
	for _, fm := range b.resolveMechanisms() {
		if err := ev.AppendFocalMechanism(fm); err != nil {
			return nil, b.diags, err
		}
	}

	b.designatePreferred(ev)
	b.identify(ev)

	if err := ev.Validate(); err != nil {
		return nil, b.diags, err
	}
	ev.Freeze()
	return ev, b.diags, nil
}

// resolvePending retries buffered magnitude records now that all origins
// have been seen.
func (b *Builder) resolvePending() {
	var placeholder *catalog.Origin
	for _, rec := range b.pending {
		key := CSSKey(schema.TableOrigin, rec.Orid)
		if originID, ok := b.res.Lookup(key); ok {
			b.linkMagnitude(rec, originID)
			continue
		}
		conflict := &IdentityConflictError{Ref: key, Source: rec.Prov()}
		if !b.opts.SynthesizePlaceholders {
			b.warn(rec.Prov(), conflict, "magnitude dropped: origin reference never resolved")
			continue
		}
		if placeholder == nil {
			placeholder = &catalog.Origin{
				ID:               catalog.FreshRID(b.opts.Authority, "Origin"),
				Method:           "placeholder",
				EvaluationMode:   "automatic",
				EvaluationStatus: "preliminary",
				Info:             catalog.CreationInfo{AgencyID: b.opts.AgencyID},
			}
			b.origins = append(b.origins, placeholder)
		}
		b.res.Bind(key, placeholder.ID)
		b.warn(rec.Prov(), conflict, "magnitude attached to placeholder origin")
		b.linkMagnitude(rec, placeholder.ID)
	}
	b.pending = nil
}

// resolveMechanisms materializes the recorded fplane rows in arrival order,
// binding each to its origin when the orid resolved during the run.
func (b *Builder) resolveMechanisms() []*catalog.FocalMechanism {
	mechs := make([]*catalog.FocalMechanism, 0, len(b.mechOrder))
	for _, mechid := range b.mechOrder {
		rec := b.mechRecs[mechid]
		id := b.res.Resolve(CSSKey(schema.TableFplane, mechid), "FocalMechanism")
		var originID catalog.ResourceID
		if oid, ok := b.res.Lookup(CSSKey(schema.TableOrigin, rec.Orid)); ok {
			originID = oid
		} else {
			b.info(rec.Prov(), "focal mechanism origin reference never resolved")
		}
		mechs = append(mechs, focalMechFromRecord(rec, id, originID, b.opts.AgencyID))
	}
	return mechs
}

// fallbackMagnitudes derives magnitudes from origin-row ml/mb/ms columns
// when the run produced no magnitudes at all.
func (b *Builder) fallbackMagnitudes() {
	if !b.opts.OriginMagFallback || len(b.magnitudes) > 0 {
		return
	}
	for _, o := range b.origins {
		rec, ok := b.originRecs[o.ID]
		if !ok {
			continue
		}
		for _, c := range []struct {
			mtype string
			val   catalog.OptFloat
		}{{"ml", rec.ML}, {"mb", rec.MB}, {"ms", rec.MS}} {
			if !c.val.Valid {
				continue
			}
			id := catalog.RID(b.opts.Authority, "Magnitude", c.mtype, strconv.FormatInt(rec.Orid, 10))
			b.magnitudes = append(b.magnitudes, originMagnitude(rec, id, o.ID, c.mtype, c.val.Float64, b.opts.AgencyID))
			b.info(rec.Prov(), "magnitude derived from origin "+c.mtype)
		}
	}
}

// designatePreferred picks the preferred origin and magnitude. An explicit
// prefor wins; otherwise the most recent origin (last in feed order, which
// drivers keep lddate-sorted) is preferred, matching the source database's
// own convention.
func (b *Builder) designatePreferred(ev *catalog.Event) {
	if b.prefor.Valid {
		if id, ok := b.res.Lookup(CSSKey(schema.TableOrigin, b.prefor.Int64)); ok {
			ev.PreferredOriginID = id
		} else {
			b.warn(catalog.Provenance{Schema: catalog.SchemaCSS, Table: schema.TableEvent, SourceID: b.prefor.Int64},
				&IdentityConflictError{Ref: CSSKey(schema.TableOrigin, b.prefor.Int64)},
				"designated preferred origin not in event")
		}
	}
	if ev.PreferredOriginID.IsZero() && len(b.origins) > 0 {
		ev.PreferredOriginID = b.origins[len(b.origins)-1].ID
	}

	if !b.preferredMagID.IsZero() {
		ev.PreferredMagnitudeID = b.preferredMagID
	} else if len(b.magnitudes) > 0 {
		ev.PreferredMagnitudeID = b.magnitudes[0].ID
	}
}

// identify fixes the event's canonical identity, type, description,
// creation info and ANSS catalog attributes.
func (b *Builder) identify(ev *catalog.Event) {
	version := ""
	if b.evid.Valid {
		version = strconv.FormatInt(b.evid.Int64, 10)
	}

	if version == "" {
		if pref := ev.PreferredOrigin(); pref != nil {
			version = pref.Info.Version
		}
	}
	if version != "" {
		ev.ID = catalog.RID(b.opts.Authority, "Event", version)
	} else {
		ev.ID = catalog.FreshRID(b.opts.Authority, "Event")
	}

	ev.Description = b.description
	ev.Type = "not reported"
	if pref := ev.PreferredOrigin(); pref != nil {
		ev.Type = eventType(pref.Etype, b.opts.EtypeMap)
		ev.Info = pref.Info
	}
	ev.Info.Version = version

	ev.ANSS = anssAttributes(b.opts.AgencyID, b.evid)
}

// anssAttributes builds the ANSS catalog attribute set for QuakeML output.
func anssAttributes(agency string, evid catalog.OptInt) map[string]string {
	code := strings.ToLower(agency)
	id := "00000000"
	if evid.Valid {
		id = fmt.Sprintf("%08d", evid.Int64)
	}
	return map[string]string{
		"datasource":  code,
		"dataid":      code + id,
		"eventsource": code,
		"eventid":     id,
	}
}
