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

type WalletHandler struct {
	walletService service.WalletService
	validate      *validator.Validate
	log           *logger.Logger
}

func NewWalletHandler(walletService service.WalletService, log *logger.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		validate:      validator.New(),
		log:           log,
	}
}

func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wallet", h.GetWallet)
	r.Post("/wallet", h.TopUp)
}

// GET /v1/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.walletService.GetWallet(r.Context(), actorFrom(r))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, wallet)
}

// POST /v1/wallet
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req models.TopUpRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	entry, err := h.walletService.TopUp(r.Context(), actorFrom(r), &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, entry)
}
