package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/inspirlabs/tutorchat/ai/llm"
	"github.com/inspirlabs/tutorchat/ai/metrics"
	"github.com/inspirlabs/tutorchat/internal/profile"
	"github.com/inspirlabs/tutorchat/server/auth"
	"github.com/inspirlabs/tutorchat/server/middleware"
	"github.com/inspirlabs/tutorchat/store"
)

// APIV1Service wires the chat HTTP surface: session issuance, conversation
// CRUD, message history and search, and the streaming chat turn.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	llmService     llm.Service
	sessionManager *auth.SessionManager
	rateLimiter    *middleware.SessionRateLimiter
	chatMetrics    *metrics.ChatMetrics
	// streamSemaphore bounds concurrent upstream model streams.
	streamSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, llmService llm.Service) *APIV1Service {
	return &APIV1Service{
		Profile:         profile,
		Store:           store,
		llmService:      llmService,
		sessionManager:  auth.NewSessionManager(profile.SessionSecret, auth.DefaultTTL),
		rateLimiter:     middleware.NewSessionRateLimiter(profile.MessageRateLimit),
		chatMetrics:     metrics.NewChatMetrics(),
		streamSemaphore: semaphore.NewWeighted(int64(profile.MaxConcurrentStreams)),
	}
}

// Close releases background resources held by the service.
func (s *APIV1Service) Close() {
	s.rateLimiter.Stop()
}

// RegisterRoutes mounts all v1 routes onto the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)
	e.GET("/metrics", echo.WrapHandler(s.chatMetrics.Handler()))

	g := e.Group("/api/v1")
	g.Use(echomw.CORS())

	g.POST("/sessions", s.CreateSession)

	authed := g.Group("", s.sessionMiddleware)
	authed.GET("/conversations", s.ListConversations)
	authed.POST("/conversations", s.CreateConversation)
	authed.GET("/conversations/:id", s.GetConversation)
	authed.PATCH("/conversations/:id", s.UpdateConversation)
	authed.DELETE("/conversations/:id", s.DeleteConversation)
	authed.GET("/conversations/:id/messages", s.ListMessages)
	authed.POST("/conversations/:id/messages", s.SendMessage)
	authed.GET("/search", s.SearchMessages)
}

// Healthz reports liveness of the server and its database.
func (s *APIV1Service) Healthz(c echo.Context) error {
	if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
		slog.Error("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
