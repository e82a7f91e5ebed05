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

type DriverHandler struct {
	driverService service.DriverService
	validate      *validator.Validate
	log           *logger.Logger
}

func NewDriverHandler(driverService service.DriverService, log *logger.Logger) *DriverHandler {
	return &DriverHandler{
		driverService: driverService,
		validate:      validator.New(),
		log:           log,
	}
}

func (h *DriverHandler) RegisterRoutes(r chi.Router) {
	r.Get("/drivers/{id}", h.GetDriver)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(models.RoleDriver))
		r.Post("/drivers", h.CreateDriver)
		r.Post("/drivers/me/location", h.UpdateLocation)
		r.Post("/drivers/me/availability", h.SetAvailability)
	})
}

// POST /v1/drivers
func (h *DriverHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDriverRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	driver, err := h.driverService.CreateDriver(r.Context(), actorFrom(r), &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, driver.ToResponse())
}

// GET /v1/drivers/{id}
func (h *DriverHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "driver")
	if !ok {
		return
	}

	driver, err := h.driverService.GetDriver(r.Context(), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, driver.ToResponse())
}

// POST /v1/drivers/me/location
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateDriverLocationRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	driver, err := h.driverService.UpdateLocation(r.Context(), actorFrom(r), &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": driver.LastLocationUpdate,
	})
}

// POST /v1/drivers/me/availability
func (h *DriverHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateAvailabilityRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	driver, err := h.driverService.SetAvailability(r.Context(), actorFrom(r), *req.IsAvailable)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, driver.ToResponse())
}
