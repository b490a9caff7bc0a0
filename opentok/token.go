package opentok

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/isqad/opentok-go/internal/telemetry"
)

const (
	tokenPrefix = "T1=="

	// MaxTokenData is the longest connection data a token may carry, in characters
	MaxTokenData = 1000
	// DefaultTokenLifetime applies when TokenOptions.ExpireTime is zero
	DefaultTokenLifetime = 24 * time.Hour
	// MaxTokenLifetime is the furthest a token may expire after its creation
	MaxTokenLifetime = 30 * 24 * time.Hour
)

var sessionIDDecoder = strings.NewReplacer("-", "+", "_", "/")

// TokenOptions are the claims a caller may set on a token. The zero value yields a publisher
// token valid for 24 hours.
type TokenOptions struct {
	Role                   Role      `json:"role,omitempty"`
	ExpireTime             time.Time `json:"expire_time,omitempty"`
	Data                   string    `json:"data,omitempty"`
	InitialLayoutClassList []string  `json:"initial_layout_class_list,omitempty"`
}

func (o TokenOptions) withDefaults(now time.Time) TokenOptions {
	if o.Role == "" {
		o.Role = RolePublisher
	}
	if o.ExpireTime.IsZero() {
		o.ExpireTime = now.Add(DefaultTokenLifetime)
	}
	return o
}

func (o TokenOptions) validate(now time.Time) error {
	created := now.Unix()
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Role),
		validation.Field(&o.Data, validation.RuneLength(0, MaxTokenData)),
		validation.Field(&o.ExpireTime, validation.By(func(value interface{}) error {
			expires := value.(time.Time).Unix()
			if expires <= created {
				return fmt.Errorf("must be after the creation time %d", created)
			}
			if expires > created+int64(MaxTokenLifetime/time.Second) {
				return fmt.Errorf("must be within %s of the creation time", MaxTokenLifetime)
			}
			return nil
		})),
	)
	return fromValidation(err)
}

// GenerateToken builds a signed token granting opts.Role in the given session. The token is
// never sent anywhere by this package; the client application hands it to the browser or
// mobile SDK, and the remote service verifies its signature.
func (c *Client) GenerateToken(sessionID string, opts TokenOptions) (string, error) {
	if err := c.checkSessionID(sessionID); err != nil {
		return "", err
	}

	now := c.now()
	opts = opts.withDefaults(now)
	if err := opts.validate(now); err != nil {
		return "", err
	}

	body := encodeTokenBody(sessionID, now, opts)
	raw := "partner_id=" + c.apiKey + "&sig=" + signTokenBody(body, c.apiSecret) + ":" + body
	token := tokenPrefix + base64.StdEncoding.EncodeToString([]byte(raw))

	telemetry.TokenIssued(string(opts.Role))
	c.log.Debug().
		Str("session_id", sessionID).
		Str("role", string(opts.Role)).
		Time("expire_time", opts.ExpireTime).
		Msg("token generated")

	return token, nil
}

// checkSessionID makes sure the session id decodes and was issued for this project
func (c *Client) checkSessionID(sessionID string) error {
	if sessionID == "" {
		return invalid("session_id", "cannot be empty")
	}
	if len(sessionID) < 3 {
		return invalid("session_id", "is too short to be a session id")
	}

	encoded := strings.TrimRight(sessionIDDecoder.Replace(sessionID[2:]), "=")
	decoded, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return invalid("session_id", "cannot be decoded")
	}
	for _, part := range strings.Split(string(decoded), "~") {
		if part == c.apiKey {
			return nil
		}
	}
	return invalid("session_id", "does not belong to project "+c.apiKey)
}

func encodeTokenBody(sessionID string, now time.Time, opts TokenOptions) string {
	pairs := [][2]string{
		{"session_id", sessionID},
		{"create_time", strconv.FormatInt(now.Unix(), 10)},
		{"expire_time", strconv.FormatInt(opts.ExpireTime.Unix(), 10)},
		{"role", string(opts.Role)},
	}
	if opts.Data != "" {
		pairs = append(pairs, [2]string{"data", opts.Data})
	}
	if len(opts.InitialLayoutClassList) > 0 {
		pairs = append(pairs, [2]string{"initial_layout_class_list", strings.Join(opts.InitialLayoutClassList, " ")})
	}
	pairs = append(pairs, [2]string{"nonce", newNonce()})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

func newNonce() string {
	return strconv.Itoa(rand.Intn(1000000)) + "." + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func signTokenBody(body, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// TokenClaims is a decoded token
type TokenClaims struct {
	PartnerID              string
	Signature              string
	SessionID              string
	Role                   Role
	CreateTime             time.Time
	ExpireTime             time.Time
	Data                   string
	InitialLayoutClassList []string
	Nonce                  string

	body string
}

// ParseToken decodes a token produced by GenerateToken. It does not check the signature,
// use Verify for that.
func ParseToken(token string) (*TokenClaims, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, invalid("token", "missing "+tokenPrefix+" prefix")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
	if err != nil {
		return nil, invalid("token", "cannot be decoded")
	}

	header, body, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, invalid("token", "missing signature header")
	}
	hv, err := url.ParseQuery(header)
	if err != nil {
		return nil, invalid("token", "malformed signature header")
	}
	bv, err := url.ParseQuery(body)
	if err != nil {
		return nil, invalid("token", "malformed body")
	}

	claims := &TokenClaims{
		PartnerID: hv.Get("partner_id"),
		Signature: hv.Get("sig"),
		SessionID: bv.Get("session_id"),
		Role:      Role(bv.Get("role")),
		Data:      bv.Get("data"),
		Nonce:     bv.Get("nonce"),
		body:      body,
	}
	if layout := bv.Get("initial_layout_class_list"); layout != "" {
		claims.InitialLayoutClassList = strings.Split(layout, " ")
	}
	if claims.CreateTime, err = parseEpoch(bv.Get("create_time")); err != nil {
		return nil, invalid("create_time", err.Error())
	}
	if claims.ExpireTime, err = parseEpoch(bv.Get("expire_time")); err != nil {
		return nil, invalid("expire_time", err.Error())
	}

	return claims, nil
}

// Verify reports whether the token was signed with secret
func (t *TokenClaims) Verify(secret string) bool {
	expected := signTokenBody(t.body, secret)
	return hmac.Equal([]byte(expected), []byte(t.Signature))
}

func parseEpoch(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a unix timestamp: %q", s)
	}
	return time.Unix(sec, 0), nil
}
