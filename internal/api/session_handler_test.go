package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isqad/opentok-go/opentok"
)

const (
	testAPIKey    = "123456"
	testAPISecret = "1234567890abcdef1234567890abcdef1234567890"
	testSessionID = "1_MX4xMjM0NTZ-flNhdCBNYXIgMTUgMTQ6NDI6MjMgUERUIDIwMTR-MC40OTAxMzAyNX4"
	testAuthToken = "backend-token"
)

// MockSessionService signs real tokens and records the remote calls
type MockSessionService struct {
	client *opentok.Client

	CreatedWith   opentok.SessionOptions
	SignalSession string
	SignalPayload opentok.SignalPayload
	SignalConn    string
	Disconnected  string
	Streams       *opentok.StreamList
	MockErr       error
}

func NewMockSessionService(t *testing.T) *MockSessionService {
	client, err := opentok.New(testAPIKey, testAPISecret)
	require.NoError(t, err)
	return &MockSessionService{client: client}
}

func (s *MockSessionService) CreateSession(ctx context.Context, opts opentok.SessionOptions) (*opentok.Session, error) {
	s.CreatedWith = opts
	if s.MockErr != nil {
		return nil, s.MockErr
	}
	return opentok.NewSession(s.client, testSessionID, opts)
}

func (s *MockSessionService) GenerateToken(sessionID string, opts opentok.TokenOptions) (string, error) {
	return s.client.GenerateToken(sessionID, opts)
}

func (s *MockSessionService) Signal(ctx context.Context, sessionID string, payload opentok.SignalPayload, connectionID string) error {
	s.SignalSession = sessionID
	s.SignalPayload = payload
	s.SignalConn = connectionID
	return s.MockErr
}

func (s *MockSessionService) GetStream(ctx context.Context, sessionID, streamID string) (*opentok.Stream, error) {
	if s.MockErr != nil {
		return nil, s.MockErr
	}
	for _, stream := range s.Streams.Items {
		if stream.ID == streamID {
			return stream, nil
		}
	}
	return nil, &opentok.ServiceError{StatusCode: http.StatusNotFound, Message: "no such stream"}
}

func (s *MockSessionService) ListStreams(ctx context.Context, sessionID string) (*opentok.StreamList, error) {
	return s.Streams, s.MockErr
}

func (s *MockSessionService) ForceDisconnect(ctx context.Context, sessionID, connectionID string) error {
	s.Disconnected = connectionID
	return s.MockErr
}

func newTestServer(t *testing.T, service SessionService) *httptest.Server {
	t.Helper()
	app := NewApp(AppOptions{
		Env:       "development",
		AuthToken: testAuthToken,
		Service:   service,
	})
	ts := httptest.NewServer(app.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("X-Auth", testAuthToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSessionCreateHandler(t *testing.T) {
	t.Run("creates a routed session", func(t *testing.T) {
		service := NewMockSessionService(t)
		ts := newTestServer(t, service)

		resp := doRequest(t, "POST", ts.URL+"/sessions", `{"media_mode":"routed","archive_mode":"always"}`)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		got := &SessionResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(got))
		assert.Equal(t, testSessionID, got.SessionID)
		assert.Equal(t, opentok.MediaModeRouted, got.MediaMode)
		assert.Equal(t, opentok.MediaModeRouted, service.CreatedWith.MediaMode)
		assert.Equal(t, opentok.ArchiveModeAlways, service.CreatedWith.ArchiveMode)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		service := NewMockSessionService(t)
		ts := newTestServer(t, service)

		resp := doRequest(t, "POST", ts.URL+"/sessions", "")
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, opentok.SessionOptions{}, service.CreatedWith)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		ts := newTestServer(t, NewMockSessionService(t))

		resp := doRequest(t, "POST", ts.URL+"/sessions", `{"media_mode":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("platform rejection is a bad gateway", func(t *testing.T) {
		service := NewMockSessionService(t)
		service.MockErr = &opentok.AuthError{StatusCode: http.StatusForbidden, Message: "invalid credentials"}
		ts := newTestServer(t, service)

		resp := doRequest(t, "POST", ts.URL+"/sessions", "")
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		got := &errorResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(got))
		assert.Contains(t, got.Error, "invalid credentials")
	})

	t.Run("requires the shared secret", func(t *testing.T) {
		ts := newTestServer(t, NewMockSessionService(t))

		resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestTokenCreateHandler(t *testing.T) {
	ts := newTestServer(t, NewMockSessionService(t))

	t.Run("issues a moderator token", func(t *testing.T) {
		expires := time.Now().Add(time.Hour).Unix()
		body := `{"role":"moderator","data":"name=alice","expire_time":` + jsonInt(expires) + `}`

		resp := doRequest(t, "POST", ts.URL+"/sessions/"+testSessionID+"/tokens", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		got := &TokenResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(got))
		assert.Equal(t, testSessionID, got.SessionID)
		assert.Equal(t, opentok.RoleModerator, got.Role)
		assert.Equal(t, expires, got.ExpireTime)

		claims, err := opentok.ParseToken(got.Token)
		require.NoError(t, err)
		assert.Equal(t, "name=alice", claims.Data)
		assert.True(t, claims.Verify(testAPISecret))
	})

	t.Run("defaults to publisher", func(t *testing.T) {
		resp := doRequest(t, "POST", ts.URL+"/sessions/"+testSessionID+"/tokens", "")
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		got := &TokenResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(got))
		assert.Equal(t, opentok.RolePublisher, got.Role)
	})

	t.Run("invalid role is unprocessable", func(t *testing.T) {
		resp := doRequest(t, "POST", ts.URL+"/sessions/"+testSessionID+"/tokens", `{"role":"owner"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("oversized data is unprocessable", func(t *testing.T) {
		body := `{"data":"` + strings.Repeat("x", 1001) + `"}`
		resp := doRequest(t, "POST", ts.URL+"/sessions/"+testSessionID+"/tokens", body)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("foreign session is unprocessable", func(t *testing.T) {
		resp := doRequest(t, "POST", ts.URL+"/sessions/2_bm90LW91cnM/tokens", "")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestSignalHandler(t *testing.T) {
	service := NewMockSessionService(t)
	ts := newTestServer(t, service)

	resp := doRequest(t, "POST", ts.URL+"/sessions/"+testSessionID+"/signal", `{"type":"chat","data":"hi"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, testSessionID, service.SignalSession)
	assert.Equal(t, opentok.SignalPayload{Type: "chat", Data: "hi"}, service.SignalPayload)
	assert.Empty(t, service.SignalConn)

	resp = doRequest(t, "POST", ts.URL+"/sessions/"+testSessionID+"/connections/c1/signal", `{"type":"chat","data":"psst"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "c1", service.SignalConn)

	service.MockErr = &opentok.ForceDisconnectError{StatusCode: http.StatusNotFound, Message: "not connected"}
	resp = doRequest(t, "POST", ts.URL+"/sessions/"+testSessionID+"/connections/c2/signal", `{"type":"chat"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConnectionDeleteHandler(t *testing.T) {
	service := NewMockSessionService(t)
	ts := newTestServer(t, service)

	resp := doRequest(t, "DELETE", ts.URL+"/sessions/"+testSessionID+"/connections/c1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "c1", service.Disconnected)
}

func TestStreamsHandlers(t *testing.T) {
	service := NewMockSessionService(t)
	service.Streams = &opentok.StreamList{
		Count: 1,
		Items: []*opentok.Stream{{ID: "s1", VideoType: opentok.VideoTypeCamera, Name: "alice"}},
	}
	ts := newTestServer(t, service)

	resp := doRequest(t, "GET", ts.URL+"/sessions/"+testSessionID+"/streams", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := &opentok.StreamList{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(list))
	assert.Equal(t, 1, list.Count)

	resp = doRequest(t, "GET", ts.URL+"/sessions/"+testSessionID+"/streams/s1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stream := &opentok.Stream{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(stream))
	assert.Equal(t, "alice", stream.Name)

	resp = doRequest(t, "GET", ts.URL+"/sessions/"+testSessionID+"/streams/missing", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	ts := newTestServer(t, NewMockSessionService(t))

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
