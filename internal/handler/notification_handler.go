package handler

import (
	"net/http"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/service"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type NotificationHandler struct {
	notifier service.Notifier
	validate *validator.Validate
	log      *logger.Logger
}

func NewNotificationHandler(notifier service.Notifier, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		validate: validator.New(),
		log:      log,
	}
}

func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Patch("/notifications/read", h.MarkRead)
}

// GET /v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.notifier.List(r.Context(), actorFrom(r), queryLimit(r, 0))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, resp)
}

// PATCH /v1/notifications/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req models.MarkNotificationsReadRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	updated, err := h.notifier.MarkRead(r.Context(), actorFrom(r), req.IDs)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]int64{"updated": updated})
}
