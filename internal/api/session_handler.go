package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/isqad/opentok-go/opentok"
)

type SessionRequest struct {
	MediaMode   opentok.MediaMode   `json:"media_mode,omitempty"`
	ArchiveMode opentok.ArchiveMode `json:"archive_mode,omitempty"`
	Location    string              `json:"location,omitempty"`
}

type SessionResponse struct {
	SessionID   string              `json:"session_id"`
	MediaMode   opentok.MediaMode   `json:"media_mode,omitempty"`
	ArchiveMode opentok.ArchiveMode `json:"archive_mode,omitempty"`
}

// TokenRequest carries the token options; expire_time is in seconds since the epoch
type TokenRequest struct {
	Role                   opentok.Role `json:"role,omitempty"`
	ExpireTime             int64        `json:"expire_time,omitempty"`
	Data                   string       `json:"data,omitempty"`
	InitialLayoutClassList []string     `json:"initial_layout_class_list,omitempty"`
}

func (t TokenRequest) options() opentok.TokenOptions {
	opts := opentok.TokenOptions{
		Role:                   t.Role,
		Data:                   t.Data,
		InitialLayoutClassList: t.InitialLayoutClassList,
	}
	if t.ExpireTime != 0 {
		opts.ExpireTime = time.Unix(t.ExpireTime, 0)
	}
	return opts
}

type TokenResponse struct {
	Token      string       `json:"token"`
	SessionID  string       `json:"session_id"`
	Role       opentok.Role `json:"role"`
	ExpireTime int64        `json:"expire_time"`
}

func SessionCreateHandler(service SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &SessionRequest{}
		if err := decodeOptionalJSON(r.Body, req); err != nil {
			log.Warn().Err(err).Msg("can't parse session request")
			writeJSONError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		session, err := service.CreateSession(r.Context(), opentok.SessionOptions{
			MediaMode:   req.MediaMode,
			ArchiveMode: req.ArchiveMode,
			Location:    req.Location,
		})
		if err != nil {
			writeServiceError(w, r, "create session", err)
			return
		}

		writeJSON(w, http.StatusCreated, &SessionResponse{
			SessionID:   session.SessionID,
			MediaMode:   session.Options.MediaMode,
			ArchiveMode: session.Options.ArchiveMode,
		})
	}
}

func TokenCreateHandler(service SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		req := &TokenRequest{}
		if err := decodeOptionalJSON(r.Body, req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		token, err := service.GenerateToken(sessionID, req.options())
		if err != nil {
			writeServiceError(w, r, "generate token", err)
			return
		}

		claims, err := opentok.ParseToken(token)
		if err != nil {
			writeServiceError(w, r, "generate token", err)
			return
		}

		writeJSON(w, http.StatusCreated, &TokenResponse{
			Token:      token,
			SessionID:  claims.SessionID,
			Role:       claims.Role,
			ExpireTime: claims.ExpireTime.Unix(),
		})
	}
}

// SignalHandler serves both the session wide and the single connection signal routes
func SignalHandler(service SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := opentok.SignalPayload{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		err := service.Signal(r.Context(), chi.URLParam(r, "sessionID"), payload, chi.URLParam(r, "connectionID"))
		if err != nil {
			writeServiceError(w, r, "signal", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ConnectionDeleteHandler(service SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := service.ForceDisconnect(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "connectionID"))
		if err != nil {
			writeServiceError(w, r, "force disconnect", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeOptionalJSON accepts an empty body as the zero value
func decodeOptionalJSON(body io.Reader, v interface{}) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
