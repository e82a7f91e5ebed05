package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/middleware"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// handleError writes err as an API error. Anything unexpected is logged and
// answered with a generic 500.
func handleError(w http.ResponseWriter, log *logger.Logger, err error) {
	apiErr := apperrors.From(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	utils.Error(w, apiErr)
}

// decodeBody decodes and validates a JSON body, writing the 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.BadRequest(w, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.Error(w, apperrors.InvalidInput(err.Error()))
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints whose body may be empty.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequest(w, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.Error(w, apperrors.InvalidInput(err.Error()))
		return false
	}
	return true
}

// pathID returns the {id} URL parameter. Anything that is not a UUID cannot
// name a stored row, so it is answered with a 404 for resource.
func pathID(w http.ResponseWriter, r *http.Request, resource string) (string, bool) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidUUID(id) {
		utils.Error(w, apperrors.NotFound(resource))
		return "", false
	}
	return id, true
}

func actorFrom(r *http.Request) models.Actor {
	actor, _ := middleware.ActorFromContext(r.Context())
	return actor
}

func queryLimit(r *http.Request, def int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
