package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/auth"
	"github.com/botforgehq/botforge/internal/finetune"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/store"
)

type FinetuneHandler struct {
	svc *finetune.Service
}

func NewFinetuneHandler(svc *finetune.Service) *FinetuneHandler {
	return &FinetuneHandler{svc: svc}
}

func (h *FinetuneHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req finetune.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.BotID == uuid.Nil || req.DatasetID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bot_id and dataset_id required"})
		return
	}

	job, err := h.svc.CreateJob(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		// A job may exist in failed state when submission itself failed.
		if job != nil {
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": err.Error(), "job": job})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// ownedJobID parses the route's job ID and confirms it belongs to the
// authenticated owner. A false return means the response is written.
func (h *FinetuneHandler) ownedJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job ID"})
		return uuid.Nil, false
	}
	if err := h.svc.AuthorizeOwner(r.Context(), id, auth.OwnerFromContext(r.Context())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return uuid.Nil, false
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func (h *FinetuneHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerFromContext(r.Context())
	f := store.JobFilter{
		OwnerID: &ownerID,
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	}
	if s := r.URL.Query().Get("bot_id"); s != "" {
		botID, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bot_id"})
			return
		}
		f.BotID = &botID
	}
	if s := r.URL.Query().Get("status"); s != "" {
		f.Statuses = []models.JobStatus{models.JobStatus(s)}
	}

	jobs, err := h.svc.ListJobs(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

func (h *FinetuneHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedJobID(w, r)
	if !ok {
		return
	}

	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Sync forces an immediate reconciliation against the provider instead of
// waiting for the background poller.
func (h *FinetuneHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedJobID(w, r)
	if !ok {
		return
	}

	job, err := h.svc.SyncStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *FinetuneHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedJobID(w, r)
	if !ok {
		return
	}

	job, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *FinetuneHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedJobID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteJob(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
