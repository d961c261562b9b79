package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sewa/pkg/errors"
	"github.com/zatekoja/sewa/pkg/validation"
	"go.opentelemetry.io/otel/trace"
)

const maxPageSize = 100

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the application error type to an HTTP status
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithInternalError(w, r, err)
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeValidation:
		var verr *validation.Error
		if errors.As(appErr, &verr) {
			respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  appErr.Message,
				"fields": verr.Fields,
			})
			return
		}
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeInvalidTransition:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypeUnauthorized:
		respondWithError(w, http.StatusUnauthorized, appErr.Message)
	case apperrors.ErrorTypeExternal:
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	default:
		respondWithInternalError(w, r, err)
	}
}

// respondWithInternalError hides err from the client and attaches it to the
// request's log line and span
func respondWithInternalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	observability.RecordError(trace.SpanFromContext(r.Context()), err)
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	return nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be a finite number", name))
	}
	return &v, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError(fmt.Sprintf("%s must be true or false", name))
	}
	return v, nil
}

// coordinatesQuery carries an optional point from query parameters
type coordinatesQuery struct {
	Latitude  *float64 `validate:"omitempty,latitude"`
	Longitude *float64 `validate:"omitempty,longitude"`
}

// queryLocationRef reads a locality plus optional lat/lng pair into a LocationRef
func queryLocationRef(r *http.Request, localityParam, latParam, lngParam string) (services.LocationRef, error) {
	ref := services.LocationRef{Locality: strings.TrimSpace(r.URL.Query().Get(localityParam))}

	lat, err := queryFloat(r, latParam)
	if err != nil {
		return ref, err
	}
	lng, err := queryFloat(r, lngParam)
	if err != nil {
		return ref, err
	}
	if (lat == nil) != (lng == nil) {
		return ref, apperrors.NewValidationError(fmt.Sprintf("%s and %s must be given together", latParam, lngParam))
	}
	if err := validation.Struct(coordinatesQuery{Latitude: lat, Longitude: lng}); err != nil {
		return ref, err
	}
	if lat != nil && lng != nil {
		ref.Coordinates = &entities.Location{Latitude: *lat, Longitude: *lng}
	}
	return ref, nil
}

func clampLimit(limit int) int {
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
