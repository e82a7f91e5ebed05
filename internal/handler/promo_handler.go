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

type PromoHandler struct {
	promoService service.PromoService
	validate     *validator.Validate
	log          *logger.Logger
}

func NewPromoHandler(promoService service.PromoService, log *logger.Logger) *PromoHandler {
	return &PromoHandler{
		promoService: promoService,
		validate:     validator.New(),
		log:          log,
	}
}

func (h *PromoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/promos", h.List)
	r.Post("/promos/apply", h.Apply)
}

// GET /v1/promos
func (h *PromoHandler) List(w http.ResponseWriter, r *http.Request) {
	promos, err := h.promoService.List(r.Context())
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, promos)
}

// POST /v1/promos/apply
func (h *PromoHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req models.ApplyPromoRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	quote, err := h.promoService.Apply(r.Context(), &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, quote)
}
