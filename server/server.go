package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/inspirlabs/tutorchat/ai/llm"
	"github.com/inspirlabs/tutorchat/internal/profile"
	apiv1 "github.com/inspirlabs/tutorchat/server/router/api/v1"
	"github.com/inspirlabs/tutorchat/store"
)

// Server is the HTTP server hosting the chat API.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiV1      *apiv1.APIV1Service
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				slog.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"error", v.Error,
				)
				return nil
			}
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
	}

	var llmService llm.Service
	if profile.IsLLMEnabled() {
		service, err := llm.NewService(&llm.Config{
			Provider: profile.LLMProvider,
			Model:    profile.LLMModel,
			APIKey:   profile.LLMAPIKey,
			BaseURL:  profile.LLMBaseURL,
			Timeout:  profile.LLMTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create LLM service")
		}
		llmService = service
		slog.Info("LLM service initialized",
			"provider", profile.LLMProvider,
			"model", profile.LLMModel,
		)
		// Warmup is best-effort and must not delay startup.
		go func() {
			warmupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			llmService.Warmup(warmupCtx)
		}()
	} else {
		slog.Warn("LLM is not configured, chat turns will be rejected",
			"hint", "set TUTORCHAT_LLM_API_KEY",
		)
	}

	s.apiV1 = apiv1.NewAPIV1Service(profile, store, llmService)
	s.apiV1.RegisterRoutes(e)

	return s, nil
}

// Start begins serving in the background. Errors other than a clean shutdown
// surface through the logger.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests, then closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	s.apiV1.Close()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("tutorchat stopped properly")
}
