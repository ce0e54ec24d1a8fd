// Package auth provides the authenticated-session abstraction for chat
// clients. A session is an opaque identity minted for an anonymous browser
// and carried in a signed token; every conversation is owned by exactly one
// session.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// Issuer is the JWT issuer claim for session tokens.
	Issuer = "tutorchat"
	// KeyID is the version of the signing key.
	KeyID = "v1"
	// AccessTokenAudience is the audience claim for session tokens.
	AccessTokenAudience = "tutorchat.session"

	// DefaultTTL is how long a session token stays valid.
	DefaultTTL = 30 * 24 * time.Hour
)

// SessionManager mints and verifies session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager creates a session manager with the given signing secret.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl}
}

// Issue mints a fresh session ID and its signed token.
func (m *SessionManager) Issue() (sessionID, token string, err error) {
	sessionID = uuid.NewString()
	token, err = m.sign(sessionID)
	return sessionID, token, err
}

func (m *SessionManager) sign(sessionID string) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   sessionID,
		Audience:  jwt.ClaimStrings{AccessTokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = KeyID
	token, err := t.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}
	return token, nil
}

// Verify validates a session token and returns its session ID.
func (m *SessionManager) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithAudience(AccessTokenAudience))
	if err != nil {
		return "", errors.Wrap(err, "invalid session token")
	}
	if claims.Subject == "" {
		return "", errors.New("session token missing subject")
	}
	return claims.Subject, nil
}
