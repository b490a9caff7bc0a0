package opentok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type ArchiveStatus string

const (
	ArchiveAvailable ArchiveStatus = "available"
	ArchiveExpired   ArchiveStatus = "expired"
	ArchiveFailed    ArchiveStatus = "failed"
	ArchivePaused    ArchiveStatus = "paused"
	ArchiveStarted   ArchiveStatus = "started"
	ArchiveStopped   ArchiveStatus = "stopped"
	ArchiveUploaded  ArchiveStatus = "uploaded"
)

// Archive is a recording of a routed session
type Archive struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"sessionId"`
	PartnerID  int64         `json:"partnerId"`
	Name       string        `json:"name"`
	Status     ArchiveStatus `json:"status"`
	Reason     string        `json:"reason"`
	Size       int64         `json:"size"`
	Duration   int64         `json:"duration"`
	CreatedAt  int64         `json:"createdAt"`
	HasAudio   bool          `json:"hasAudio"`
	HasVideo   bool          `json:"hasVideo"`
	OutputMode OutputMode    `json:"outputMode"`
	Resolution string        `json:"resolution,omitempty"`
	URL        *string       `json:"url"`
}

// Created converts the millisecond CreatedAt timestamp
func (a *Archive) Created() time.Time {
	return time.UnixMilli(a.CreatedAt)
}

type ArchiveList struct {
	Count int        `json:"count"`
	Items []*Archive `json:"items"`
}

// ArchiveOptions configures a new recording. Use DefaultArchiveOptions to record both audio
// and video.
type ArchiveOptions struct {
	Name       string     `json:"name,omitempty"`
	HasAudio   bool       `json:"hasAudio"`
	HasVideo   bool       `json:"hasVideo"`
	OutputMode OutputMode `json:"outputMode,omitempty"`
	// Resolution is either 640x480 or 1280x720, composed archives only
	Resolution string `json:"resolution,omitempty"`
}

func DefaultArchiveOptions() ArchiveOptions {
	return ArchiveOptions{
		HasAudio:   true,
		HasVideo:   true,
		OutputMode: OutputModeComposed,
	}
}

func (o ArchiveOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.OutputMode),
		validation.Field(&o.Resolution, validation.In("640x480", "1280x720")),
	)
	if err != nil {
		return fromValidation(err)
	}
	if o.OutputMode == OutputModeIndividual && o.Resolution != "" {
		return invalid("resolution", "is not supported for individual archives")
	}
	return nil
}

type startArchiveRequest struct {
	SessionID string `json:"sessionId"`
	ArchiveOptions
}

func (c *Client) StartArchive(ctx context.Context, sessionID string, opts ArchiveOptions) (*Archive, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid("session_id", "cannot be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(startArchiveRequest{SessionID: sessionID, ArchiveOptions: opts})
	if err != nil {
		return nil, fmt.Errorf("start_archive: encode request: %w", err)
	}

	body, err := c.do(ctx, apiRequest{
		op:          "start_archive",
		method:      http.MethodPost,
		url:         c.endpoints.ArchiveURL(""),
		body:        payload,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return decodeArchive("start_archive", body)
}

func (c *Client) StopArchive(ctx context.Context, archiveID string) (*Archive, error) {
	if strings.TrimSpace(archiveID) == "" {
		return nil, invalid("archive_id", "cannot be empty")
	}

	body, err := c.do(ctx, apiRequest{
		op:          "stop_archive",
		method:      http.MethodPost,
		url:         c.endpoints.StopArchiveURL(archiveID),
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return decodeArchive("stop_archive", body)
}

func (c *Client) GetArchive(ctx context.Context, archiveID string) (*Archive, error) {
	if strings.TrimSpace(archiveID) == "" {
		return nil, invalid("archive_id", "cannot be empty")
	}

	body, err := c.do(ctx, apiRequest{
		op:     "get_archive",
		method: http.MethodGet,
		url:    c.endpoints.ArchiveURL(archiveID),
	})
	if err != nil {
		return nil, err
	}
	return decodeArchive("get_archive", body)
}

func (c *Client) DeleteArchive(ctx context.Context, archiveID string) error {
	if strings.TrimSpace(archiveID) == "" {
		return invalid("archive_id", "cannot be empty")
	}

	_, err := c.do(ctx, apiRequest{
		op:     "delete_archive",
		method: http.MethodDelete,
		url:    c.endpoints.ArchiveURL(archiveID),
	})
	return err
}

// ListArchivesOptions pages through the archives of the project, optionally filtered by session
type ListArchivesOptions struct {
	Offset    int
	Count     int
	SessionID string
}

func (o ListArchivesOptions) query() string {
	q := url.Values{}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.Count > 0 {
		q.Set("count", strconv.Itoa(o.Count))
	}
	if o.SessionID != "" {
		q.Set("sessionId", o.SessionID)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListArchives(ctx context.Context, opts ListArchivesOptions) (*ArchiveList, error) {
	if opts.Offset < 0 {
		return nil, invalid("offset", "cannot be negative")
	}
	if opts.Count < 0 {
		return nil, invalid("count", "cannot be negative")
	}

	body, err := c.do(ctx, apiRequest{
		op:     "list_archives",
		method: http.MethodGet,
		url:    c.endpoints.ArchiveURL("") + opts.query(),
	})
	if err != nil {
		return nil, err
	}

	list := &ArchiveList{}
	if err := json.Unmarshal(body, list); err != nil {
		return nil, fmt.Errorf("list_archives: decode response: %w", err)
	}
	return list, nil
}

func decodeArchive(op string, body []byte) (*Archive, error) {
	archive := &Archive{}
	if err := json.Unmarshal(body, archive); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return archive, nil
}
