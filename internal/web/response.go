package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raine/rapidlisting/internal/imaging"
	"github.com/raine/rapidlisting/internal/listing"
	"github.com/raine/rapidlisting/internal/session"
	"github.com/rs/zerolog/log"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("error encoding response")
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// errorStatus maps a domain error to an HTTP status. Unknown errors are
// internal.
func errorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, errFileTooLarge), errors.Is(err, imaging.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, listing.ErrUnknownField),
		errors.Is(err, listing.ErrInvalidCondition),
		errors.Is(err, listing.ErrUnknownMode),
		errors.Is(err, imaging.ErrUnsupportedImage),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotSubmittable),
		errors.Is(err, session.ErrGenerationInFlight),
		errors.Is(err, session.ErrExtractionInFlight),
		errors.Is(err, session.ErrNoImages),
		errors.Is(err, session.ErrTooManyImages),
		errors.Is(err, session.ErrNoResult),
		errors.Is(err, session.ErrResultDiscarded):
		return http.StatusConflict
	case errors.Is(err, session.ErrGenerationFailed),
		errors.Is(err, session.ErrExtractionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorMessage returns the user facing text of err. Internal errors are not
// exposed.
func errorMessage(err error) string {
	if errorStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return "upload is too large"
	}
	return err.Error()
}

// writeAPIError writes err as a JSON error with its mapped status.
func writeAPIError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	jsonError(w, status, errorMessage(err))
}
