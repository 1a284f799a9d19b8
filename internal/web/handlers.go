package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/convert"
	"github.com/seisops/db2qml/internal/logging"
	"github.com/seisops/db2qml/internal/quakeml"
)

const quakemlContentType = "application/xml; charset=utf-8"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// handleEventQuakeML renders one event as a QuakeML document.
func (s *Server) handleEventQuakeML(w http.ResponseWriter, r *http.Request) {
	evid, ok := pathID(w, r, "evid")
	if !ok {
		return
	}

	data, diags, err := s.conv.QuakeML(r.Context(), evid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logDiagnostics(r, evid, diags)

	w.Header().Set("Content-Type", quakemlContentType)
	w.Write(data)
}

// handleOriginQuakeML resolves an origin to its event and renders it.
func (s *Server) handleOriginQuakeML(w http.ResponseWriter, r *http.Request) {
	orid, ok := pathID(w, r, "orid")
	if !ok {
		return
	}

	ev, diags, err := s.conv.BuildEventByOrid(r.Context(), orid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logDiagnostics(r, orid, diags)

	data, err := quakeml.Render(quakeml.Document(ev))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", quakemlContentType)
	w.Write(data)
}

// handleDeleteStub renders the retraction document for an event id.
func (s *Server) handleDeleteStub(w http.ResponseWriter, r *http.Request) {
	evid, ok := pathID(w, r, "evid")
	if !ok {
		return
	}

	data, err := quakeml.Render(quakeml.Document(s.conv.DeleteEvent(evid)))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", quakemlContentType)
	w.Write(data)
}

// EventSummary is the JSON view of a converted event: identity, preferred
// solution and the magnitude list.
type EventSummary struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Time        float64            `json:"time"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	DepthM      *float64           `json:"depth_m,omitempty"`
	Magnitudes  []MagnitudeSummary `json:"magnitudes"`
	Warnings    int                `json:"warnings"`
}

// MagnitudeSummary is one magnitude in an event summary.
type MagnitudeSummary struct {
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Preferred bool    `json:"preferred"`
}

func (s *Server) handleEventSummary(w http.ResponseWriter, r *http.Request) {
	evid, ok := pathID(w, r, "evid")
	if !ok {
		return
	}

	ev, diags, err := s.conv.BuildEvent(r.Context(), evid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logDiagnostics(r, evid, diags)

	respondJSON(w, summarize(ev, diags))
}

func summarize(ev *catalog.Event, diags []convert.Diagnostic) EventSummary {
	sum := EventSummary{
		ID:          ev.ID.String(),
		Type:        ev.Type,
		Description: ev.Description,
		Magnitudes:  []MagnitudeSummary{},
	}
	if o := ev.PreferredOrigin(); o != nil {
		sum.Time = o.Time
		sum.Latitude = o.Latitude
		sum.Longitude = o.Longitude
		if o.Depth.Valid {
			d := o.Depth.Float64
			sum.DepthM = &d
		}
	}
	for _, m := range ev.Magnitudes() {
		sum.Magnitudes = append(sum.Magnitudes, MagnitudeSummary{
			Type:      m.Type,
			Value:     m.Value,
			Preferred: m.ID == ev.PreferredMagnitudeID,
		})
	}
	for _, d := range diags {
		if d.Severity == convert.SeverityWarning {
			sum.Warnings++
		}
	}
	return sum
}

// pathID parses an integer id from the URL path, responding 400 on junk.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// logDiagnostics reports per-record conversion diagnostics under the
// request's logger.
func logDiagnostics(r *http.Request, id int64, diags []convert.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	logger := logging.WithFields(r.Context(), "id", id)
	for _, d := range diags {
		switch d.Severity {
		case convert.SeverityWarning:
			logger.Warn("conversion diagnostic", "detail", d.String())
		default:
			logger.Info("conversion diagnostic", "detail", d.String())
		}
	}
}
