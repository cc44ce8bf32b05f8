package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botforgehq/botforge/internal/auth"
	"github.com/botforgehq/botforge/internal/models"
	"github.com/botforgehq/botforge/internal/store"
)

type BotHandler struct {
	bots store.BotStore
}

func NewBotHandler(bots store.BotStore) *BotHandler {
	return &BotHandler{bots: bots}
}

type createBotRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Type        models.DatasetType `json:"type"`
	Model       string             `json:"model,omitempty"`
}

func (h *BotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	if !req.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bot type"})
		return
	}

	now := time.Now().UTC()
	bot := &models.Bot{
		ID:          uuid.New(),
		OwnerID:     auth.OwnerFromContext(r.Context()),
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Model:       req.Model,
		Status:      models.BotStatusInactive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.bots.Create(r.Context(), bot); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, bot)
}

func (h *BotHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerFromContext(r.Context())
	bots, err := h.bots.Query(r.Context(), &ownerID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bots": bots, "count": len(bots)})
}

func (h *BotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bot ID"})
		return
	}

	bot, err := h.bots.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "bot not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if bot.OwnerID != auth.OwnerFromContext(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "bot not found"})
		return
	}
	writeJSON(w, http.StatusOK, bot)
}
