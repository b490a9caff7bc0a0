package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/isqad/opentok-go/opentok"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("can't encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &errorResponse{Error: message})
}

// writeServiceError maps SDK errors onto response codes. Rejections by the video platform
// surface as 502 since the caller did nothing wrong against this service.
func writeServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var (
		verr *opentok.ValidationError
		ferr *opentok.ForceDisconnectError
		aerr *opentok.AuthError
		serr *opentok.ServiceError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &ferr):
		status = http.StatusNotFound
	case errors.As(err, &aerr), errors.As(err, &serr):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("action", action).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("request failed")

	writeJSONError(w, status, err.Error())
}
