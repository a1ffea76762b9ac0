// internal/handler/moderation_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
	"github.com/unclebandit/moderated-board/internal/service"
)

// ModerationHandler serves read-only moderation data as JSON for dashboards and scripts
type ModerationHandler struct {
	Service *service.ModerationService
	Log     logrus.FieldLogger
}

func NewModerationHandler(svc *service.ModerationService, log logrus.FieldLogger) *ModerationHandler {
	return &ModerationHandler{Service: svc, Log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatsHandler returns message counts by moderation state
func (h *ModerationHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats()
	if err != nil {
		h.Log.WithError(err).Error("Failed to load moderation stats")
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListMessagesHandler returns a paginated, filterable list of messages
func (h *ModerationHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(q.Get("page_size")); err == nil && ps > 0 && ps <= 100 {
		pageSize = ps
	}

	filter := model.MessageFilter{
		Author: q.Get("author"),
		Search: q.Get("q"),
	}
	if v, err := strconv.ParseBool(q.Get("approved")); err == nil {
		filter.Approved = &v
	}
	if v, err := strconv.ParseBool(q.Get("notified")); err == nil {
		filter.Notified = &v
	}

	result, err := h.Service.Search(filter, page, pageSize)
	if err != nil {
		h.Log.WithError(err).Error("Failed to list messages")
		http.Error(w, "failed to fetch messages", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": result.Messages,
		"pagination": map[string]int{
			"page":        result.Number,
			"page_size":   result.PageSize,
			"total_count": result.TotalCount,
			"total_pages": result.TotalPages,
		},
	})
}

// GetMessageHandler returns a single message by ID
func (h *ModerationHandler) GetMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	m, err := h.Service.Get(id)
	if appErrors.IsNotFound(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.WithError(err).WithField("message_id", id).Error("Failed to fetch message")
		http.Error(w, "failed to fetch message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
