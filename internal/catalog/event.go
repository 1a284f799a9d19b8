// Package catalog defines the canonical in-memory event graph that all
// source schemas (CSS3.0 rows, Antelope ORB packets, Ichinose moment-tensor
// solutions) normalize into, and that the QuakeML emitter walks.
//
// The graph is Event -> Origins -> Magnitudes -> MomentTensor, with
// first-motion FocalMechanisms attached directly to the event. Magnitudes
// reference their Origin by ResourceID (association, not ownership); a
// MomentTensor is owned by exactly one moment-type Magnitude. Entities are
// mutable while a builder assembles them and become immutable once the
// Event is frozen.
package catalog

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned by mutating calls on a finalized event.
var ErrFrozen = errors.New("catalog: event is finalized")

// Origin is a located, timed solution for an event.
// Time and location are mutually required; depth and all uncertainties are
// optional. Distances are meters, angles degrees, times epoch seconds.
type Origin struct {
	ID ResourceID

	Time            float64 // epoch seconds
	TimeUncertainty OptFloat

	Latitude             float64
	Longitude            float64
	LatitudeUncertainty  OptFloat // degrees
	LongitudeUncertainty OptFloat // degrees

	Depth            OptFloat // meters, positive down
	DepthUncertainty OptFloat
	DepthType        string

	// Horizontal error ellipse projected from the CSS covariance.
	MaxHorizontalUncertainty OptFloat // meters, semi-major
	MinHorizontalUncertainty OptFloat // meters, semi-minor
	AzimuthMaxHorizontal     OptFloat // degrees from north
	ConfidenceLevel          OptFloat // percent

	// Quality.
	AssociatedPhaseCount OptInt
	UsedPhaseCount       OptInt
	StandardError        OptFloat

	Method           string
	Etype            string // CSS origin etype flag, kept for event typing
	EvaluationMode   string
	EvaluationStatus string

	Info   CreationInfo
	Source Provenance
}

// Magnitude is a size estimate tied to an Origin in the same event.
type Magnitude struct {
	ID       ResourceID
	OriginID ResourceID // weak reference, resolved within the event

	Type        string // ml, mb, ms, Mw...
	Value       float64
	Uncertainty OptFloat

	StationCount     OptInt
	EvaluationMode   string
	EvaluationStatus string

	// Owned moment tensor, only ever set on a moment-type magnitude.
	MomentTensor *MomentTensor

	Info   CreationInfo
	Source Provenance
}

// Tensor holds the six independent moment tensor components in the
// spherical (r, t, p) convention, N-m.
type Tensor struct {
	Mrr, Mtt, Mpp float64
	Mrt, Mrp, Mtp float64
}

// NodalPlane is one strike/dip/rake triple, degrees, in the conventional
// ranges strike [0,360), dip [0,90], rake (-180,180].
type NodalPlane struct {
	Strike, Dip, Rake float64
}

// MomentTensor is the source mechanism attached to a moment magnitude.
// Components and nodal planes are kept mutually consistent: whichever the
// source lacked was synthesized from the other.
type MomentTensor struct {
	ID              ResourceID
	DerivedOriginID ResourceID

	ScalarMoment float64 // N-m
	Tensor       *Tensor
	Plane1       NodalPlane
	Plane2       NodalPlane

	PercentDC   OptFloat
	PercentCLVD OptFloat
	PercentISO  OptFloat

	Variance          OptFloat // epsilon
	VarianceReduction OptFloat // percent
	AzimuthalGap      OptFloat
	StationCount      OptInt

	Category         string
	EvaluationMode   string
	EvaluationStatus string

	Info   CreationInfo
	Source Provenance
}

// Axis is one principal axis as azimuth/plunge, degrees.
type Axis struct {
	Azimuth OptFloat
	Plunge  OptFloat
}

// FocalMechanism is a first-motion mechanism solution attached directly to
// the event: two nodal planes plus optional principal axes. Moment-tensor
// mechanisms live on their owning Magnitude instead.
type FocalMechanism struct {
	ID                 ResourceID
	TriggeringOriginID ResourceID // weak reference, may be empty

	Plane1 NodalPlane
	Plane2 NodalPlane

	TAxis Axis
	PAxis Axis

	Info   CreationInfo
	Source Provenance
}

// Event is the root of the graph. Child slices are unexported so that a
// frozen event cannot be grown by downstream consumers; the read accessors
// below form the capability set usable without going through QuakeML.
type Event struct {
	ID          ResourceID
	Type        string
	Description string

	PreferredOriginID    ResourceID
	PreferredMagnitudeID ResourceID

	// ANSS catalog attributes (datasource, dataid, eventsource, eventid).
	ANSS map[string]string

	Info CreationInfo

	origins    []*Origin
	magnitudes []*Magnitude
	mechanisms []*FocalMechanism
	frozen     bool
}

// NewEvent returns an unfrozen event with the given canonical identifier.
func NewEvent(id ResourceID) *Event {
	return &Event{ID: id}
}

// AppendOrigin links an origin into the event.
func (e *Event) AppendOrigin(o *Origin) error {
	if e.frozen {
		return ErrFrozen
	}
	e.origins = append(e.origins, o)
	return nil
}

// AppendMagnitude links a magnitude into the event.
func (e *Event) AppendMagnitude(m *Magnitude) error {
	if e.frozen {
		return ErrFrozen
	}
	e.magnitudes = append(e.magnitudes, m)
	return nil
}

// AppendFocalMechanism links a first-motion mechanism into the event.
func (e *Event) AppendFocalMechanism(fm *FocalMechanism) error {
	if e.frozen {
		return ErrFrozen
	}
	e.mechanisms = append(e.mechanisms, fm)
	return nil
}

// Freeze makes the event immutable. Idempotent.
func (e *Event) Freeze() { e.frozen = true }

// Frozen reports whether the event has been finalized.
func (e *Event) Frozen() bool { return e.frozen }

// Origins returns the origins in insertion order. The returned slice is a
// copy; the entities themselves are shared and must not be mutated after
// the event is frozen.
func (e *Event) Origins() []*Origin {
	out := make([]*Origin, len(e.origins))
	copy(out, e.origins)
	return out
}

// Magnitudes returns the magnitudes in insertion order, as a copied slice.
func (e *Event) Magnitudes() []*Magnitude {
	out := make([]*Magnitude, len(e.magnitudes))
	copy(out, e.magnitudes)
	return out
}

// FocalMechanisms returns the first-motion mechanisms in insertion order,
// as a copied slice.
func (e *Event) FocalMechanisms() []*FocalMechanism {
	out := make([]*FocalMechanism, len(e.mechanisms))
	copy(out, e.mechanisms)
	return out
}

// Origin looks up an origin by canonical identifier.
func (e *Event) Origin(id ResourceID) (*Origin, bool) {
	for _, o := range e.origins {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Magnitude looks up a magnitude by canonical identifier.
func (e *Event) Magnitude(id ResourceID) (*Magnitude, bool) {
	for _, m := range e.magnitudes {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// PreferredOrigin returns the designated primary origin, or nil when the
// event has no origins.
func (e *Event) PreferredOrigin() *Origin {
	if o, ok := e.Origin(e.PreferredOriginID); ok {
		return o
	}
	if len(e.origins) > 0 {
		return e.origins[len(e.origins)-1]
	}
	return nil
}

// PreferredMagnitude returns the designated primary magnitude, or nil.
func (e *Event) PreferredMagnitude() *Magnitude {
	if m, ok := e.Magnitude(e.PreferredMagnitudeID); ok {
		return m
	}
	return nil
}

// Validate checks the structural invariants that must hold on a finalized
// event: a preferred origin exists when any origin does, and every
// magnitude references an origin present in the event.
func (e *Event) Validate() error {
	if len(e.origins) > 0 {
		if _, ok := e.Origin(e.PreferredOriginID); !ok {
			return fmt.Errorf("catalog: event %s: preferred origin %q not in event", e.ID, e.PreferredOriginID)
		}
	}
	for _, m := range e.magnitudes {
		if _, ok := e.Origin(m.OriginID); !ok {
			return fmt.Errorf("catalog: event %s: magnitude %s references unknown origin %q", e.ID, m.ID, m.OriginID)
		}
	}
	for _, fm := range e.mechanisms {
		if fm.TriggeringOriginID.IsZero() {
			continue
		}
		if _, ok := e.Origin(fm.TriggeringOriginID); !ok {
			return fmt.Errorf("catalog: event %s: focal mechanism %s references unknown origin %q", e.ID, fm.ID, fm.TriggeringOriginID)
		}
	}
	return nil
}
