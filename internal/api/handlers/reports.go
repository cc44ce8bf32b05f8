package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/auth"
	"github.com/botforgehq/botforge/internal/store"
)

type ReportHandler struct {
	reports store.TrainingReportStore
	bots    store.BotStore
}

func NewReportHandler(reports store.TrainingReportStore, bots store.BotStore) *ReportHandler {
	return &ReportHandler{reports: reports, bots: bots}
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerFromContext(r.Context())
	f := store.ReportFilter{
		OwnerID: &ownerID,
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	}
	for param, dst := range map[string]**uuid.UUID{
		"job_id":     &f.JobID,
		"bot_id":     &f.BotID,
		"dataset_id": &f.DatasetID,
	} {
		if s := r.URL.Query().Get(param); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + param})
				return
			}
			*dst = &id
		}
	}

	reports, err := h.reports.Query(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports, "count": len(reports)})
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid report ID"})
		return
	}

	report, err := h.reports.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	bot, err := h.bots.Get(r.Context(), *report.BotID)
	if err != nil || bot.OwnerID != auth.OwnerFromContext(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}
