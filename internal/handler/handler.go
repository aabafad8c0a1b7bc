package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultLimit = 20
	maxBodyBytes = 1 << 20
)

var errInvalidJSON = model.NewDomainError(model.KindValidation, model.ErrCodeInvalidJSON, "Request body is not valid JSON")

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// Page is a slice of a longer listing.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func writeEnvelope(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		// Headers are already sent; nothing useful can reach the client.
		return
	}
}

// writeJSON writes a successful response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, Response{Success: true, Data: data})
}

// writeError maps err onto a status code and error body. Errors that are not
// domain errors are logged and reported as internal failures.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg("handler error")
		writeEnvelope(w, http.StatusInternalServerError, Response{Error: &ErrorBody{
			Code:    model.ErrCodeInternalError,
			Message: "Internal server error",
		}})
		return
	}

	status := StatusFor(de)
	if status >= http.StatusInternalServerError {
		logger.Error().Str("code", de.Code).Str("error", de.Message).Int("status", status).Msg("handler error")
	} else {
		logger.Debug().Str("code", de.Code).Str("error", de.Message).Int("status", status).Msg("request rejected")
	}

	writeEnvelope(w, status, Response{Error: &ErrorBody{
		Code:    de.Code,
		Message: de.Message,
		Fields:  de.Fields,
	}})
}

// StatusFor returns the HTTP status for a domain error.
func StatusFor(err *model.DomainError) int {
	switch err.Kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindStateConflict:
		return http.StatusConflict
	case model.KindExternal:
		return http.StatusBadGateway
	case model.KindAuthorization:
		if err.Code == model.ErrCodeUnauthorised {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

// pagination reads limit and offset query parameters.
func pagination(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.ErrInvalidInput.WithMessage("Invalid %s parameter", name).WithFields(name)
	}
	return n, nil
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, model.ErrInvalidInput.WithMessage("Invalid %s format", name).WithFields(name)
	}
	return id, nil
}

// requireActor returns the authenticated caller or ErrUnauthorised.
func requireActor(r *http.Request) (model.Actor, error) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok || actor.UserID == "" {
		return model.Actor{}, model.ErrUnauthorised
	}
	return actor, nil
}
