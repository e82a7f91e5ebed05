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

const (
	defaultRideListLimit     = 20
	defaultLocationListLimit = 50
)

type RideHandler struct {
	rideService     service.RideService
	pricingService  service.PricingService
	matchingService service.MatchingService
	validate        *validator.Validate
	log             *logger.Logger
}

func NewRideHandler(
	rideService service.RideService,
	pricingService service.PricingService,
	matchingService service.MatchingService,
	log *logger.Logger,
) *RideHandler {
	return &RideHandler{
		rideService:     rideService,
		pricingService:  pricingService,
		matchingService: matchingService,
		validate:        validator.New(),
		log:             log,
	}
}

func (h *RideHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(models.RoleRider)).Post("/rides/requests", h.CreateRequest)
	r.Get("/rides/requests/{id}", h.GetRequest)
	r.With(middleware.RequireRole(models.RoleDriver)).Post("/rides/requests/{id}/accept", h.AcceptRequest)
	r.Post("/rides/requests/{id}/cancel", h.CancelRequest)

	r.Post("/rides/fare-estimate", h.FareEstimate)
	r.Post("/rides/nearby-drivers", h.NearbyDrivers)

	r.Get("/rides", h.ListRides)
	r.Get("/rides/{id}", h.GetRide)
	r.Post("/rides/{id}/start", h.StartRide)
	r.Post("/rides/{id}/complete", h.CompleteRide)
	r.Post("/rides/{id}/cancel", h.CancelRide)
	r.Post("/rides/{id}/rate", h.RateRide)
	r.Get("/rides/{id}/locations", h.ListLocations)
	r.Post("/rides/{id}/locations", h.RecordLocation)
}

// POST /v1/rides/requests
func (h *RideHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRideRequestInput
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	request, err := h.rideService.CreateRequest(r.Context(), actorFrom(r), &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, request)
}

// GET /v1/rides/requests/{id}
func (h *RideHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride request")
	if !ok {
		return
	}

	request, err := h.rideService.GetRequest(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, request)
}

// POST /v1/rides/requests/{id}/accept
func (h *RideHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride request")
	if !ok {
		return
	}

	ride, err := h.rideService.AcceptRequest(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, ride)
}

// POST /v1/rides/requests/{id}/cancel
func (h *RideHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride request")
	if !ok {
		return
	}

	request, err := h.rideService.CancelRequest(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, request)
}

// POST /v1/rides/fare-estimate
func (h *RideHandler) FareEstimate(w http.ResponseWriter, r *http.Request) {
	var req models.FareEstimateRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	fare, err := h.pricingService.Estimate(r.Context(), req.Pickup(), req.Destination(), req.RideType)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, fare)
}

// POST /v1/rides/nearby-drivers
func (h *RideHandler) NearbyDrivers(w http.ResponseWriter, r *http.Request) {
	var req models.NearbyDriversRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	point := models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	resp, err := h.matchingService.FindNearbyDrivers(r.Context(), point, req.RadiusKM)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, resp)
}

// GET /v1/rides
func (h *RideHandler) ListRides(w http.ResponseWriter, r *http.Request) {
	rides, err := h.rideService.ListRides(r.Context(), actorFrom(r), queryLimit(r, defaultRideListLimit))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, rides)
}

// GET /v1/rides/{id}
func (h *RideHandler) GetRide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// POST /v1/rides/{id}/start
func (h *RideHandler) StartRide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	ride, err := h.rideService.StartRide(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// POST /v1/rides/{id}/complete
func (h *RideHandler) CompleteRide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	var req models.CompleteRideRequest
	if !decodeOptionalBody(w, r, h.validate, &req) {
		return
	}

	ride, err := h.rideService.CompleteRide(r.Context(), actorFrom(r), id, &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// POST /v1/rides/{id}/cancel
func (h *RideHandler) CancelRide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	var req models.CancelRideRequest
	if !decodeOptionalBody(w, r, h.validate, &req) {
		return
	}

	ride, err := h.rideService.CancelRide(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// POST /v1/rides/{id}/rate
func (h *RideHandler) RateRide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	var req models.RateRideRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	ride, err := h.rideService.RateRide(r.Context(), actorFrom(r), id, &req)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, ride)
}

// GET /v1/rides/{id}/locations
func (h *RideHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	locations, err := h.rideService.ListLocations(r.Context(), actorFrom(r), id, queryLimit(r, defaultLocationListLimit))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Success(w, http.StatusOK, locations)
}

// POST /v1/rides/{id}/locations
func (h *RideHandler) RecordLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	var req models.UpdateDriverLocationRequest
	if !decodeBody(w, r, h.validate, &req) {
		return
	}

	location, err := h.rideService.RecordLocation(r.Context(), actorFrom(r), id, *req.Latitude, *req.Longitude, req.Speed)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	utils.Created(w, location)
}
