package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// sessionIDContextKey is where the session middleware stores the verified
// session ID on the echo context.
const sessionIDContextKey = "session-id"

// CreateSession mints a new anonymous session and returns its token. Clients
// send the token back as a bearer credential on every chat request.
func (s *APIV1Service) CreateSession(c echo.Context) error {
	sessionID, token, err := s.sessionManager.Issue()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"sessionId": sessionID,
		"token":     token,
	})
}

// sessionMiddleware verifies the bearer token and stores the session ID for
// downstream handlers. Every conversation route requires a session.
func (s *APIV1Service) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
		}
		sessionID, err := s.sessionManager.Verify(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
		}
		c.Set(sessionIDContextKey, sessionID)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("malformed Authorization header")
	}
	return parts[1], nil
}

// currentSessionID returns the session ID set by sessionMiddleware.
func currentSessionID(c echo.Context) string {
	id, _ := c.Get(sessionIDContextKey).(string)
	return id
}
