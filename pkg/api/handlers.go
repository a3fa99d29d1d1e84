package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vesselworks/vesseltrace/pkg/engine"
	"github.com/vesselworks/vesseltrace/pkg/lifecycle"
	"github.com/vesselworks/vesseltrace/pkg/query"
	"github.com/vesselworks/vesseltrace/pkg/store"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// writeEngineError maps the engine's recoverable error taxonomy onto
// HTTP status codes. Anything unclassified is a 500.
func (s *server) writeEngineError(w http.ResponseWriter, err error) {
	var (
		validation   *engine.ValidationError
		invalid      *engine.InvalidInputError
		duplicate    *engine.DuplicateRepairError
		precondition *lifecycle.PreconditionError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{validation.Error()})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{invalid.Error()})
	case errors.As(err, &duplicate):
		writeJSON(w, http.StatusConflict, errorResponse{duplicate.Error()})
	case errors.As(err, &precondition):
		writeJSON(w, http.StatusUnprocessableEntity,
			errorResponse{precondition.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{"record not found"})
	default:
		s.log.WithError(err).Error("Request failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})
	}
}

// urlID parses the {id} URL parameter.
func urlID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(id), nil
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Test record handlers ---

func (s *server) handleSubmitTest(w http.ResponseWriter, r *http.Request) {
	var t store.TestRecord
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	// The engine backfills t.ID on create, so the create-vs-update
	// decision must be made before the call.
	isUpdate := t.ID != 0

	saved, err := s.engine.SubmitTest(r.Context(), &t)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	status := http.StatusCreated
	if isUpdate {
		status = http.StatusOK
	}

	writeJSON(w, status, saved)
}

func (s *server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	t, err := s.engine.GetTest(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (s *server) handleQueryTests(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	tests, err := s.engine.QueryTests(r.Context(), f)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, tests)
}

func (s *server) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	if err := s.engine.DeleteTest(r.Context(), id); err != nil {
		s.writeEngineError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGenerateRepair(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	repair, err := s.engine.GenerateRepair(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, repair)
}

// --- Repair record handlers ---

func (s *server) handleGetRepair(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	repair, err := s.engine.GetRepair(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, repair)
}

func (s *server) handleQueryRepairs(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	repairs, err := s.engine.QueryRepairs(r.Context(), f)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, repairs)
}

func (s *server) handleDeleteRepair(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	if err := s.engine.DeleteRepair(r.Context(), id); err != nil {
		s.writeEngineError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// transitionRequest is the payload for a repair status transition.
type transitionRequest struct {
	Status              store.RepairStatus  `json:"status"`
	Reason              string              `json:"reason,omitempty"`
	Retest              *store.RetestRecord `json:"retest,omitempty"`
	ActualDurationHours *float64            `json:"actual_duration_hours,omitempty"`
}

func (s *server) handleTransitionRepair(
	w http.ResponseWriter, r *http.Request,
) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	repair, err := s.engine.TransitionRepair(
		r.Context(), id, req.Status, lifecycle.Payload{
			Reason:              req.Reason,
			Retest:              req.Retest,
			ActualDurationHours: req.ActualDurationHours,
		},
	)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, repair)
}

func (s *server) handleAppendStep(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	var step store.RepairStep
	if err := json.NewDecoder(r.Body).Decode(&step); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	repair, err := s.engine.AppendRepairStep(r.Context(), id, step)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, repair)
}

func (s *server) handleAddQualityCheck(
	w http.ResponseWriter, r *http.Request,
) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	var qc store.QualityCheck
	if err := json.NewDecoder(r.Body).Decode(&qc); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	repair, err := s.engine.AddQualityCheck(r.Context(), id, qc)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, repair)
}

func (s *server) handleAddMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid id"})

		return
	}

	var m store.Material
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	repair, err := s.engine.AddMaterial(r.Context(), id, m)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, repair)
}

// --- Derived views ---

func (s *server) handleAssetHistory(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if serial == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"serial number is required"})

		return
	}

	h, err := s.engine.GetAssetHistory(r.Context(), serial)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, h)
}

func (s *server) handleFleetStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	agg, err := s.engine.FleetStats(r.Context(), f)
	if err != nil {
		s.writeEngineError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, agg)
}

// parseFilter builds a query filter from URL query parameters. The
// period modes are mutually exclusive and selected by the "period"
// parameter: month (year+month), quarter (year+quarter), or range
// (from+to, inclusive, as 2006-01-02 dates).
func parseFilter(r *http.Request) (query.Filter, error) {
	q := r.URL.Query()

	f := query.Filter{
		SerialContains: q.Get("serial"),
		AssetType:      q.Get("asset_type"),
		TestType:       q.Get("test_type"),
		Result:         store.Result(q.Get("result")),
		RepairStatus:   q.Get("repair_status"),
	}

	switch q.Get("period") {
	case "":
	case "month":
		year, month, err := parseYearPart(q.Get("year"), q.Get("month"), 12)
		if err != nil {
			return f, err
		}

		f.Period = &query.Period{
			Mode:  query.PeriodMonth,
			Year:  year,
			Month: time.Month(month),
		}
	case "quarter":
		year, quarter, err := parseYearPart(q.Get("year"), q.Get("quarter"), 4)
		if err != nil {
			return f, err
		}

		f.Period = &query.Period{
			Mode:    query.PeriodQuarter,
			Year:    year,
			Quarter: quarter,
		}
	case "range":
		from, err := time.Parse("2006-01-02", q.Get("from"))
		if err != nil {
			return f, errors.New("invalid from date, want 2006-01-02")
		}

		to, err := time.Parse("2006-01-02", q.Get("to"))
		if err != nil {
			return f, errors.New("invalid to date, want 2006-01-02")
		}

		// Push the upper bound to end of day so the range is inclusive.
		to = to.Add(24*time.Hour - time.Nanosecond)

		f.Period = &query.Period{
			Mode: query.PeriodRange,
			From: from,
			To:   to,
		}
	default:
		return f, errors.New("invalid period, want month, quarter or range")
	}

	return f, nil
}

// parseYearPart parses a year plus a bounded sub-period (month or
// quarter number).
func parseYearPart(yearStr, partStr string, maxPart int) (int, int, error) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, errors.New("invalid year")
	}

	part, err := strconv.Atoi(partStr)
	if err != nil || part < 1 || part > maxPart {
		return 0, 0, errors.New("invalid period part")
	}

	return year, part, nil
}
