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

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	log         *logger.Logger
}

func NewUserHandler(userService service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterPublicRoutes mounts the routes reachable without a token.
func (h *UserHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/users", h.CreateUser)
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/me", h.GetMe)
	r.Get("/users/{id}", h.GetUser)
}

// POST /v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	user, err := h.userService.CreateUser(r.Context(), &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, user.ToResponse())
}

// GET /v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	h.getUser(w, r, actor, actor.UserID)
}

// GET /v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	h.getUser(w, r, actorFrom(r), id)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request, actor models.Actor, id string) {
	user, err := h.userService.GetUser(r.Context(), actor, id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, user.ToResponse())
}
