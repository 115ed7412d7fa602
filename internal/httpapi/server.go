package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/marco741/prof-backend/internal/globaltime"
	"github.com/marco741/prof-backend/internal/provider"
	"github.com/marco741/prof-backend/internal/search"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	DefaultLanguage string
}

type Server struct {
	searcher *search.Service
	locale   *localeResolver
	logger   zerolog.Logger
	opts     Options
}

func NewServer(searcher *search.Service, registry *provider.Registry, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8000
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		searcher: searcher,
		locale:   newLocaleResolver(registry.Languages(), opts.DefaultLanguage),
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			DefaultLanguage: opts.DefaultLanguage,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.searcher == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("prof gateway started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("prof gateway stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Cache-Control"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/health", s.handleHealth)
	e.GET("/search", s.handleSearch)
	e.GET("/search/:provider", s.handleSearchProvider)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "prof",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	query, err := s.buildQuery(c, "")
	if err != nil {
		return err
	}
	return s.respond(c, query)
}

func (s *Server) handleSearchProvider(c echo.Context) error {
	providerName := sanitizeProviderName(c.Param("provider"))
	if providerName == "" {
		return fail(c, http.StatusUnprocessableEntity, "provider_not_available")
	}

	query, err := s.buildQuery(c, providerName)
	if err != nil {
		return err
	}
	return s.respond(c, query)
}

func (s *Server) buildQuery(c echo.Context, providerName string) (search.Query, error) {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return search.Query{}, fail(c, http.StatusBadRequest, "Query parameter q is required")
	}

	long := false
	if raw := strings.TrimSpace(c.QueryParam("long")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return search.Query{}, fail(c, http.StatusBadRequest, "Query parameter long must be a boolean")
		}
		long = parsed
	}

	return search.Query{
		Text:           q,
		Long:           long,
		TargetLanguage: s.locale.Resolve(c, q),
		CacheControl:   c.Request().Header.Get("Cache-Control"),
		Provider:       providerName,
	}, nil
}

func (s *Server) respond(c echo.Context, query search.Query) error {
	outcome, err := s.searcher.Search(c.Request().Context(), query)
	switch {
	case errors.Is(err, search.ErrUnknownProvider):
		return fail(c, http.StatusUnprocessableEntity, "provider_not_available")
	case errors.Is(err, search.ErrNotFound):
		return fail(c, http.StatusNotFound, "result_not_found")
	case err != nil:
		s.logger.Error().Err(err).Str("query", query.Text).Msg("search failed")
		return internalError(c, "unknown_error")
	}

	if outcome.Disambiguation != nil {
		return successWithStatus(c, http.StatusConflict, outcome.Disambiguation)
	}
	return success(c, outcome.Result)
}

// sanitizeProviderName keeps only the characters a provider identifier may
// contain.
func sanitizeProviderName(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
