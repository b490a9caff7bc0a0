package opentok

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	authHeader = "X-OPENTOK-AUTH"

	// authTokenLifetime is how long the per-request JWT stays valid
	authTokenLifetime = 3 * time.Minute
)

// ProjectClaims are the claims of the JWT sent with every REST call
type ProjectClaims struct {
	IssuerType string `json:"ist"`
	jwt.RegisteredClaims
}

func (c *Client) authToken() (string, error) {
	now := c.now()
	claims := ProjectClaims{
		IssuerType: "project",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.apiKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(authTokenLifetime)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.apiSecret))
}
