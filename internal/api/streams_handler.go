package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func StreamsIndexHandler(service SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		streams, err := service.ListStreams(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeServiceError(w, r, "list streams", err)
			return
		}

		writeJSON(w, http.StatusOK, streams)
	}
}

func StreamShowHandler(service SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stream, err := service.GetStream(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "streamID"))
		if err != nil {
			writeServiceError(w, r, "get stream", err)
			return
		}

		writeJSON(w, http.StatusOK, stream)
	}
}
