/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes triage runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/darshan8850/IssueWise/agents/metaagent"
	"github.com/darshan8850/IssueWise/agents/triage"
	"github.com/darshan8850/IssueWise/github/issues"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MIMEApplicationNDJSON is the content type of streamed triage responses.
const MIMEApplicationNDJSON = "application/x-ndjson"

// DefaultShutdownTimeout bounds how long in-flight runs may finish after the
// server is asked to stop.
const DefaultShutdownTimeout = 30 * time.Second

var httpRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "issuewise_http_requests_total",
		Help: "HTTP requests served, by route and status code.",
	},
	[]string{"route", "code"},
)

// Runner is the triage backend.
type Runner interface {
	Run(ctx context.Context, selector string, req triage.Request, notify func(triage.Notification)) (triage.Outcome, error)
	Models() []metaagent.Availability
	DefaultProvider() string
}

// TriageRequest is the body of POST /api/v1/triage.
type TriageRequest struct {
	IssueURL string `json:"issue_url"`
	Ref      string `json:"ref,omitempty"`
	// Provider is a catalog selector; empty selects the default provider.
	Provider string `json:"provider,omitempty"`
}

// TriageResponse reports a finished run.
type TriageResponse struct {
	triage.Outcome
	Error string `json:"error,omitempty"`
}

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	Default string                   `json:"default"`
	Models  []metaagent.Availability `json:"models"`
}

// Server routes HTTP requests to a Runner.
type Server struct {
	echo            *echo.Echo
	runner          Runner
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// New creates a Server. ctx carries the logger that request loggers are
// derived from.
func New(ctx context.Context, runner Runner, opts ...Option) *Server {
	s := &Server{
		echo:            echo.New(),
		runner:          runner,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(clog.FromContext(ctx)))

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	api := e.Group("/api/v1")
	api.GET("/models", s.models)
	api.POST("/triage", s.triage)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()
	clog.FromContext(ctx).With("addr", addr).Info("Serving triage API")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	clog.FromContext(ctx).Info("Shutting down triage API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger attaches a request-scoped clog logger to the request
// context and records the outcome of every request.
func requestLogger(base *clog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			log := base.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				With("method", req.Method).
				With("path", req.URL.Path)
			c.SetRequest(req.WithContext(clog.WithLogger(req.Context(), log)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			httpRequests.WithLabelValues(c.Path(), strconv.Itoa(status)).Inc()
			log.With("status", status).With("duration", time.Since(start)).Debug("Handled request")
			return nil
		}
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) models(c echo.Context) error {
	return c.JSON(http.StatusOK, ModelsResponse{
		Default: s.runner.DefaultProvider(),
		Models:  s.runner.Models(),
	})
}

func (s *Server) triage(c echo.Context) error {
	var body TriageRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	if strings.TrimSpace(body.IssueURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "issue_url is required")
	}

	ctx := c.Request().Context()
	req := triage.Request{IssueURL: body.IssueURL, Ref: body.Ref}
	if stream, _ := strconv.ParseBool(c.QueryParam("stream")); stream {
		return s.triageStream(ctx, c, body.Provider, req)
	}

	out, err := s.runner.Run(ctx, body.Provider, req, nil)
	resp := TriageResponse{Outcome: out}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(statusFor(err), resp)
}

// streamLine is one line of a streamed triage response: either a
// notification or, last, the result.
type streamLine struct {
	Notification *triage.Notification `json:"notification,omitempty"`
	Result       *TriageResponse      `json:"result,omitempty"`
}

// triageStream writes every notification as it happens, followed by the
// result, as newline-delimited JSON. The status is always 200 since it is
// sent before the run starts.
func (s *Server) triageStream(ctx context.Context, c echo.Context, selector string, req triage.Request) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, MIMEApplicationNDJSON)
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	write := func(line streamLine) {
		if err := enc.Encode(line); err != nil {
			clog.FromContext(ctx).With("error", err).Warn("Failed to write stream line")
			return
		}
		w.Flush()
	}

	out, err := s.runner.Run(ctx, selector, req, func(n triage.Notification) {
		write(streamLine{Notification: &n})
	})
	resp := TriageResponse{Outcome: out}
	if err != nil {
		resp.Error = err.Error()
	}
	write(streamLine{Result: &resp})
	return nil
}

// statusFor maps a run error onto an HTTP status.
func statusFor(err error) int {
	var (
		malformed *issues.MalformedReferenceError
		config    *metaagent.ConfigurationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &malformed), errors.As(err, &config):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
