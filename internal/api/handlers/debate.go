package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/dialectic/internal/config"
	"github.com/Harshitk-cp/dialectic/internal/debate"
	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type DebateHandler struct {
	mgr         *debate.Manager
	defaultPace domain.PaceConfig
}

func NewDebateHandler(mgr *debate.Manager, defaultPace domain.PaceConfig) *DebateHandler {
	return &DebateHandler{mgr: mgr, defaultPace: defaultPace}
}

type startDebateRequest struct {
	Problem   string `json:"problem"`
	Pace      string `json:"pace,omitempty"`
	MaxRounds int    `json:"max_rounds,omitempty"`
}

type startDebateResponse struct {
	DebateID uuid.UUID     `json:"debate_id"`
	Status   domain.Status `json:"status"`
}

// Create starts a debate and returns immediately; the debate runs on its
// own goroutine.
// POST /v1/debates
func (h *DebateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req startDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	paceCfg := h.defaultPace
	if req.Pace != "" {
		p, ok := config.PaceProfile(req.Pace)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown pace profile")
			return
		}
		paceCfg = p
	}
	if req.MaxRounds != 0 {
		paceCfg.MaxRounds = req.MaxRounds
	}

	id, err := h.mgr.Start(req.Problem, paceCfg)
	if err != nil {
		switch {
		case errors.Is(err, debate.ErrTooManyDebates):
			writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			// Anything else is a caller mistake: empty problem or an
			// invalid pace override.
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, startDebateResponse{
		DebateID: id,
		Status:   domain.StatusRunning,
	})
}

// Get returns the current snapshot of a debate: live progress while it
// runs, the terminal result after.
// GET /v1/debates/:debateID
func (h *DebateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "debateID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	snap, err := h.mgr.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, debate.ErrDebateNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load debate")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

type listDebatesResponse struct {
	Debates []domain.DebateSummary `json:"debates"`
	Count   int                    `json:"count"`
}

// List returns recent debates, live and archived, newest first.
// GET /v1/debates?limit=50
func (h *DebateHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	debates, err := h.mgr.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list debates")
		return
	}

	writeJSON(w, http.StatusOK, listDebatesResponse{
		Debates: debates,
		Count:   len(debates),
	})
}

// Cancel aborts a running debate. The debate terminates through its normal
// path, so watchers still receive a result frame.
// DELETE /v1/debates/:debateID
func (h *DebateHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "debateID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid debate id")
		return
	}

	if err := h.mgr.Cancel(id); err != nil {
		switch {
		case errors.Is(err, debate.ErrDebateNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, debate.ErrDebateFinished):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel debate")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}
