package handler

import (
	"net/http"

	"github.com/aditya/rideshare/internal/middleware"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/service"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	validate       *validator.Validate
	log            *logger.Logger
}

func NewPaymentHandler(paymentService service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validator.New(),
		log:            log,
	}
}

func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(models.RoleRider)).Post("/payments", h.ProcessPayment)
	r.Get("/payments/{id}", h.GetPayment)
}

// POST /v1/payments
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePaymentRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	payment, err := h.paymentService.ProcessPayment(r.Context(), actorFrom(r), &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, payment)
}

// GET /v1/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "payment")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, payment)
}
