package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/auth"
	"github.com/botforgehq/botforge/internal/dataset"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/store"
)

type DatasetHandler struct {
	svc      *dataset.Service
	importer *dataset.Importer
}

func NewDatasetHandler(svc *dataset.Service, importer *dataset.Importer) *DatasetHandler {
	return &DatasetHandler{svc: svc, importer: importer}
}

// Generate kicks off an asynchronous generation job and returns the
// pending dataset record.
func (h *DatasetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dataset.CreateGenerationJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.OwnerID = auth.OwnerFromContext(r.Context())

	ds, err := h.svc.CreateGenerationJob(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, ds)
}

// Import ingests a hand-authored JSONL file uploaded as multipart form data.
func (h *DatasetHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(100 << 20); err != nil { // 100MB
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file"})
		return
	}

	title := r.FormValue("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title required"})
		return
	}

	ds, err := h.importer.ImportJSONL(r.Context(), dataset.ImportRequest{
		OwnerID:     auth.OwnerFromContext(r.Context()),
		Title:       title,
		Description: r.FormValue("description"),
		Type:        models.DatasetType(r.FormValue("type")),
		JSONL:       data,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, ds)
}

// SourceMaterial attaches an uploaded document (PDF or plain text) to a
// pending generation job as prompt context.
func (h *DatasetHandler) SourceMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dataset ID"})
		return
	}

	if err := r.ParseMultipartForm(50 << 20); err != nil { // 50MB
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file"})
		return
	}

	if existing, getErr := h.svc.Get(r.Context(), id); getErr == nil && existing.OwnerID != auth.OwnerFromContext(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
		return
	}

	ds, err := h.importer.AttachSourceMaterial(r.Context(), id, header.Filename, data)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerFromContext(r.Context())
	f := store.DatasetFilter{
		OwnerID: &ownerID,
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := models.GenerationStatus(s)
		f.Status = &status
	}

	datasets, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": datasets, "count": len(datasets)})
}

func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dataset ID"})
		return
	}

	ds, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ds.OwnerID != auth.OwnerFromContext(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dataset ID"})
		return
	}

	ds, err := h.svc.Get(r.Context(), id)
	if err == nil && ds.OwnerID != auth.OwnerFromContext(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
