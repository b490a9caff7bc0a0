package opentok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type VideoType string

const (
	VideoTypeCamera VideoType = "camera"
	VideoTypeScreen VideoType = "screen"
)

// Stream describes a stream published in a session
type Stream struct {
	ID              string    `json:"id"`
	VideoType       VideoType `json:"videoType"`
	Name            string    `json:"name"`
	LayoutClassList []string  `json:"layoutClassList"`
}

type StreamList struct {
	Count int       `json:"count"`
	Items []*Stream `json:"items"`
}

func (c *Client) GetStream(ctx context.Context, sessionID, streamID string) (*Stream, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid("session_id", "cannot be empty")
	}
	if strings.TrimSpace(streamID) == "" {
		return nil, invalid("stream_id", "cannot be empty")
	}

	body, err := c.do(ctx, apiRequest{
		op:     "get_stream",
		method: http.MethodGet,
		url:    c.endpoints.StreamURL(sessionID, streamID),
	})
	if err != nil {
		return nil, err
	}

	stream := &Stream{}
	if err := json.Unmarshal(body, stream); err != nil {
		return nil, fmt.Errorf("get_stream: decode response: %w", err)
	}
	return stream, nil
}

// ListStreams returns every stream currently published in sessionID
func (c *Client) ListStreams(ctx context.Context, sessionID string) (*StreamList, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid("session_id", "cannot be empty")
	}

	body, err := c.do(ctx, apiRequest{
		op:     "list_streams",
		method: http.MethodGet,
		url:    c.endpoints.StreamURL(sessionID, ""),
	})
	if err != nil {
		return nil, err
	}

	list := &StreamList{}
	if err := json.Unmarshal(body, list); err != nil {
		return nil, fmt.Errorf("list_streams: decode response: %w", err)
	}
	return list, nil
}
