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

type ChatHandler struct {
	chatService service.ChatService
	validate    *validator.Validate
	log         *logger.Logger
}

func NewChatHandler(chatService service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		validate:    validator.New(),
		log:         log,
	}
}

func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rides/{id}/messages", h.History)
	r.Post("/rides/{id}/messages", h.Send)
}

// GET /v1/rides/{id}/messages
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	history, err := h.chatService.History(r.Context(), actorFrom(r), id, queryLimit(r, 0))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, history)
}

// POST /v1/rides/{id}/messages
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}
	var req models.SendChatMessageRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	msg, err := h.chatService.Send(r.Context(), actorFrom(r), id, req.Message)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, msg)
}
