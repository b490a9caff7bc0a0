package opentok

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// newFakeAPI starts a server that records the last request and answers with status and body
func newFakeAPI(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	last := &recordedRequest{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		*last = recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   data,
		}
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts, last
}

func newAPIClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	c, err := New(testAPIKey, testAPISecret, WithAPIURL(apiURL))
	require.NoError(t, err)
	return c
}

func assertAuthHeader(t *testing.T, header http.Header) {
	t.Helper()
	claims := &ProjectClaims{}
	token, err := jwt.ParseWithClaims(header.Get("X-OPENTOK-AUTH"), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testAPISecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, testAPIKey, claims.Issuer)
	assert.Equal(t, "project", claims.IssuerType)
	assert.NotEmpty(t, claims.ID)
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	_, err := New("", testAPISecret)
	requireValidationError(t, err, "api_key")

	_, err = New(testAPIKey, "")
	requireValidationError(t, err, "api_secret")
}

func TestUserAgent(t *testing.T) {
	ts, last := newFakeAPI(t, http.StatusNoContent, "")
	c, err := New(testAPIKey, testAPISecret, WithAPIURL(ts.URL+"/"), WithUserAgentSuffix("myapp/2.0"))
	require.NoError(t, err)

	require.NoError(t, c.Signal(context.Background(), testSessionID, SignalPayload{Type: "t", Data: "d"}, ""))
	assert.Equal(t, "OpenTok-Go-SDK/"+Version+" myapp/2.0", last.Header.Get("User-Agent"))
	assert.Equal(t, "/v2/project/123456/session/"+testSessionID+"/signal", last.Path)
}

func TestSessionSignal(t *testing.T) {
	t.Run("signals the whole session", func(t *testing.T) {
		ts, last := newFakeAPI(t, http.StatusNoContent, "")
		session, err := NewSession(newAPIClient(t, ts.URL), testSessionID, SessionOptions{MediaMode: MediaModeRouted})
		require.NoError(t, err)

		err = session.Signal(context.Background(), SignalPayload{Type: "type test", Data: "test data"}, "")
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, last.Method)
		assert.Equal(t, "/v2/project/123456/session/"+testSessionID+"/signal", last.Path)
		assert.Contains(t, last.Header.Get("User-Agent"), "OpenTok-Go-SDK/"+Version)
		assert.Equal(t, "application/json", last.Header.Get("Content-Type"))
		assertAuthHeader(t, last.Header)

		body := map[string]string{}
		require.NoError(t, json.Unmarshal(last.Body, &body))
		assert.Equal(t, map[string]string{"type": "type test", "data": "test data"}, body)
	})

	t.Run("signals a single connection", func(t *testing.T) {
		ts, last := newFakeAPI(t, http.StatusNoContent, "")
		session, err := NewSession(newAPIClient(t, ts.URL), testSessionID, SessionOptions{})
		require.NoError(t, err)

		connectionID := "da9cb410-e29b-4c2d-ab9e-fe65bf83fcaf"
		err = session.Signal(context.Background(), SignalPayload{Type: "t", Data: "d"}, connectionID)
		require.NoError(t, err)

		assert.Equal(t, "/v2/project/123456/session/"+testSessionID+"/connection/"+connectionID+"/signal", last.Path)
		assertAuthHeader(t, last.Header)
	})

	t.Run("unknown connection is a target error", func(t *testing.T) {
		ts, _ := newFakeAPI(t, http.StatusNotFound, `{"code":404,"message":"Not found"}`)
		c := newAPIClient(t, ts.URL)

		err := c.Signal(context.Background(), testSessionID, SignalPayload{Type: "t"}, "missing")
		var target *ForceDisconnectError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, http.StatusNotFound, target.StatusCode)
		assert.Equal(t, "Not found", target.Message)
	})

	t.Run("payload too large is a service error", func(t *testing.T) {
		ts, _ := newFakeAPI(t, http.StatusRequestEntityTooLarge, "too large")
		c := newAPIClient(t, ts.URL)

		err := c.Signal(context.Background(), testSessionID, SignalPayload{Type: "t"}, "")
		var serr *ServiceError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, http.StatusRequestEntityTooLarge, serr.StatusCode)
		assert.Equal(t, "too large", serr.Message)
	})
}

func TestErrorMapping(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		call   func(c *Client) error
		check  func(t *testing.T, err error)
	}{
		{
			name:   "forbidden signal",
			status: http.StatusForbidden,
			call: func(c *Client) error {
				return c.Signal(context.Background(), testSessionID, SignalPayload{}, "")
			},
			check: func(t *testing.T, err error) {
				var aerr *AuthError
				assert.True(t, errors.As(err, &aerr))
			},
		},
		{
			name:   "unauthorized stream lookup",
			status: http.StatusUnauthorized,
			call: func(c *Client) error {
				_, err := c.GetStream(context.Background(), testSessionID, "s1")
				return err
			},
			check: func(t *testing.T, err error) {
				var aerr *AuthError
				assert.True(t, errors.As(err, &aerr))
			},
		},
		{
			name:   "bad disconnect arguments",
			status: http.StatusBadRequest,
			call: func(c *Client) error {
				return c.ForceDisconnect(context.Background(), testSessionID, "c1")
			},
			check: func(t *testing.T, err error) {
				var ferr *ForceDisconnectError
				assert.True(t, errors.As(err, &ferr))
			},
		},
		{
			name:   "disconnect of an absent connection",
			status: http.StatusNotFound,
			call: func(c *Client) error {
				return c.ForceDisconnect(context.Background(), testSessionID, "c1")
			},
			check: func(t *testing.T, err error) {
				var ferr *ForceDisconnectError
				assert.True(t, errors.As(err, &ferr))
			},
		},
		{
			name:   "archive rejected by the service",
			status: http.StatusBadRequest,
			call: func(c *Client) error {
				_, err := c.StartArchive(context.Background(), testSessionID, DefaultArchiveOptions())
				return err
			},
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr))
			},
		},
		{
			name:   "missing archive",
			status: http.StatusNotFound,
			call: func(c *Client) error {
				_, err := c.GetArchive(context.Background(), "a1")
				return err
			},
			check: func(t *testing.T, err error) {
				var serr *ServiceError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, http.StatusNotFound, serr.StatusCode)
			},
		},
		{
			name:   "server failure",
			status: http.StatusInternalServerError,
			call: func(c *Client) error {
				_, err := c.ListStreams(context.Background(), testSessionID)
				return err
			},
			check: func(t *testing.T, err error) {
				var serr *ServiceError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts, _ := newFakeAPI(t, tc.status, "")
			tc.check(t, tc.call(newAPIClient(t, ts.URL)))
		})
	}
}

func TestTransportFailureIsNotTaxonomy(t *testing.T) {
	ts, _ := newFakeAPI(t, http.StatusNoContent, "")
	c := newAPIClient(t, ts.URL)
	ts.Close()

	err := c.Signal(context.Background(), testSessionID, SignalPayload{}, "")
	require.Error(t, err)

	var serr *ServiceError
	var verr *ValidationError
	assert.False(t, errors.As(err, &serr))
	assert.False(t, errors.As(err, &verr))
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	c := newAPIClient(t, ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Signal(ctx, testSessionID, SignalPayload{}, "")
	close(release)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalValidationSkipsNetwork(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()
	c := newAPIClient(t, ts.URL)
	ctx := context.Background()

	requireValidationError(t, c.Signal(ctx, "", SignalPayload{}, ""), "session_id")
	requireValidationError(t, c.ForceDisconnect(ctx, testSessionID, ""), "connection_id")
	_, err := c.GetStream(ctx, testSessionID, "")
	requireValidationError(t, err, "stream_id")
	_, err = c.StopArchive(ctx, "")
	requireValidationError(t, err, "archive_id")
	_, err = c.ListArchives(ctx, ListArchivesOptions{Count: -1})
	requireValidationError(t, err, "count")

	assert.Equal(t, 0, calls)
}
