package opentok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SignalPayload maps onto the type and data arguments of the client side signal handlers
type SignalPayload struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Signal sends payload to every connection of sessionID, or only to connectionID when set
func (c *Client) Signal(ctx context.Context, sessionID string, payload SignalPayload, connectionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalid("session_id", "cannot be empty")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("signal: encode payload: %w", err)
	}

	_, err = c.do(ctx, apiRequest{
		op:          "signal",
		method:      http.MethodPost,
		url:         c.endpoints.SignalingURL(sessionID, connectionID),
		body:        body,
		contentType: "application/json",
		target:      targetSignal,
	})
	return err
}

// ForceDisconnect evicts connectionID from sessionID
func (c *Client) ForceDisconnect(ctx context.Context, sessionID, connectionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalid("session_id", "cannot be empty")
	}
	if strings.TrimSpace(connectionID) == "" {
		return invalid("connection_id", "cannot be empty")
	}

	_, err := c.do(ctx, apiRequest{
		op:     "force_disconnect",
		method: http.MethodDelete,
		url:    c.endpoints.ForceDisconnectURL(sessionID, connectionID),
		target: targetDisconnect,
	})
	if err == nil {
		c.log.Info().Str("session_id", sessionID).Str("connection_id", connectionID).Msg("connection disconnected")
	}
	return err
}
