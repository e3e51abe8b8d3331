package webhook

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures optional bearer authentication for deliveries.
// When enabled, each outbound request carries a short-lived HS256 token in
// the Authorization header in addition to the HMAC signature.
type AuthConfig struct {
	// Enabled turns bearer authentication on.
	Enabled bool

	// SigningKey is the HS256 signing key. Required when Enabled.
	SigningKey []byte

	// Issuer is set as the iss claim.
	// Default: "dispatchops"
	Issuer string

	// Subject is set as the sub claim. Defaults to the webhook ID.
	Subject string

	// TTL bounds token validity.
	// Default: 5 minutes
	TTL time.Duration
}

// tokenMinter issues delivery tokens from a static key.
type tokenMinter struct {
	config AuthConfig
	now    func() time.Time
}

func newTokenMinter(config AuthConfig, now func() time.Time) *tokenMinter {
	// Apply defaults
	if config.Issuer == "" {
		config.Issuer = "dispatchops"
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}

	return &tokenMinter{config: config, now: now}
}

// Mint returns a signed bearer token for a delivery to webhookID.
func (m *tokenMinter) Mint(webhookID string) (string, error) {
	subject := m.config.Subject
	if subject == "" {
		subject = webhookID
	}

	issued := m.now()
	claims := jwt.MapClaims{
		"iss": m.config.Issuer,
		"sub": subject,
		"iat": issued.Unix(),
		"exp": issued.Add(m.config.TTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("webhook: mint token: %w", err)
	}
	return signed, nil
}
