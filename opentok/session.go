package opentok

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/tidwall/gjson"
)

// SessionOptions are the attributes a session is created with. They never change afterwards.
type SessionOptions struct {
	// MediaMode defaults to relayed
	MediaMode MediaMode `json:"media_mode,omitempty"`
	// ArchiveMode defaults to manual. Always requires the routed media mode.
	ArchiveMode ArchiveMode `json:"archive_mode,omitempty"`
	// Location is an IPv4 address hinting where the session should be hosted
	Location string `json:"location,omitempty"`
}

func (o SessionOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.MediaMode),
		validation.Field(&o.ArchiveMode),
		validation.Field(&o.Location, is.IPv4),
	)
	if err != nil {
		return fromValidation(err)
	}
	if o.ArchiveMode == ArchiveModeAlways && o.MediaMode != MediaModeRouted {
		return invalid("archive_mode", "always requires the routed media mode")
	}
	return nil
}

func (o SessionOptions) form() url.Values {
	form := url.Values{}
	form.Set("p2p.preference", o.MediaMode.p2pPreference())
	archiveMode := o.ArchiveMode
	if archiveMode == "" {
		archiveMode = ArchiveModeManual
	}
	form.Set("archiveMode", string(archiveMode))
	if o.Location != "" {
		form.Set("location", o.Location)
	}
	return form
}

// Session is a conferencing room on the remote service. It borrows the client that created
// it and does not manage its lifetime.
type Session struct {
	SessionID string
	Options   SessionOptions

	client *Client
}

// NewSession binds an existing session id to a client
func NewSession(client *Client, sessionID string, opts SessionOptions) (*Session, error) {
	if client == nil {
		return nil, invalid("client", "cannot be nil")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalid("session_id", "cannot be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Session{SessionID: sessionID, Options: opts, client: client}, nil
}

// CreateSession asks the remote service for a new session
func (c *Client) CreateSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, apiRequest{
		op:          "create_session",
		method:      http.MethodPost,
		url:         c.endpoints.SessionURL(),
		body:        []byte(opts.form().Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}

	sessionID := gjson.GetBytes(body, "0.session_id").String()
	if sessionID == "" {
		sessionID = gjson.GetBytes(body, "session_id").String()
	}
	if sessionID == "" {
		return nil, &ServiceError{StatusCode: http.StatusOK, Message: "response carries no session id"}
	}

	c.log.Info().Str("session_id", sessionID).Str("media_mode", string(opts.MediaMode)).Msg("session created")
	return NewSession(c, sessionID, opts)
}

// GenerateToken signs a token for this session
func (s *Session) GenerateToken(opts TokenOptions) (string, error) {
	return s.client.GenerateToken(s.SessionID, opts)
}

// Signal sends payload to every connection of the session, or only to connectionID when set
func (s *Session) Signal(ctx context.Context, payload SignalPayload, connectionID string) error {
	return s.client.Signal(ctx, s.SessionID, payload, connectionID)
}

func (s *Session) GetStream(ctx context.Context, streamID string) (*Stream, error) {
	return s.client.GetStream(ctx, s.SessionID, streamID)
}

func (s *Session) ListStreams(ctx context.Context) (*StreamList, error) {
	return s.client.ListStreams(ctx, s.SessionID)
}

func (s *Session) ForceDisconnect(ctx context.Context, connectionID string) error {
	return s.client.ForceDisconnect(ctx, s.SessionID, connectionID)
}
