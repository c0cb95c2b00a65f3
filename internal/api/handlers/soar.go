package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/pfc/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SOARHandler struct {
	svc *service.ArchiveService
}

func NewSOARHandler(svc *service.ArchiveService) *SOARHandler {
	return &SOARHandler{svc: svc}
}

func (h *SOARHandler) available(w http.ResponseWriter) bool {
	if h.svc == nil {
		writeError(w, http.StatusServiceUnavailable, "soar session archive is not configured")
		return false
	}
	return true
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid limit")
	}
	return n, nil
}

func (h *SOARHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SOARHandler) Similar(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := h.svc.Similar(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		if errors.Is(err, service.ErrSimilarQueryEmpty) {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to find similar sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *SOARHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
