package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"brands-console/internal/events"
)

// NotificationsResponse is the body of GET /v1/notifications
type NotificationsResponse struct {
	Notifications []events.Notification `json:"notifications"`
	NextOffset    int64                 `json:"nextOffset"`
	HasMore       bool                  `json:"hasMore"`
	Count         int                   `json:"count"`
}

// NotificationsHandler serves mutation outcomes to renderers
type NotificationsHandler struct {
	queue  *events.NotificationQueue
	logger *slog.Logger
}

// NewNotificationsHandler creates a new notifications handler
func NewNotificationsHandler(queue *events.NotificationQueue, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		queue:  queue,
		logger: logger,
	}
}

// GetNotifications handles GET /v1/notifications?offset=<n>&limit=<n>&wait=<seconds>.
// Without offset it starts from the current end of the queue.
func (h *NotificationsHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	offset := h.queue.GetCurrentOffset()
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid offset parameter", nil)
			return
		}
		offset = parsed
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	waitSeconds := waitParam(r)

	notifications, nextOffset, hasMore := h.queue.GetNotifications(offset, limit)

	if len(notifications) == 0 && waitSeconds > 0 {
		h.logger.Debug("No notifications available, starting long polling",
			"offset", nextOffset,
			"wait_seconds", waitSeconds,
		)

		waitChan := h.queue.WaitForNotifications(nextOffset, time.Duration(waitSeconds)*time.Second)
		select {
		case <-waitChan:
			notifications, nextOffset, hasMore = h.queue.GetNotifications(nextOffset, limit)
		case <-r.Context().Done():
			h.logger.Debug("Client disconnected during long polling", "offset", offset)
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, NotificationsResponse{
		Notifications: notifications,
		NextOffset:    nextOffset,
		HasMore:       hasMore,
		Count:         len(notifications),
	})
}

// Dismiss handles DELETE /v1/notifications/{id}
func (h *NotificationsHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.queue.Dismiss(id) {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Notification not found: "+id, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
