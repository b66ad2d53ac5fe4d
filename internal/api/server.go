package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/nexus/internal/inference"
	"github.com/samcharles93/nexus/internal/logger"
	"github.com/samcharles93/nexus/internal/output"
	"github.com/samcharles93/nexus/internal/tokenizer"
)

// EngineProvider hands out a fresh engine per session. Engines are never
// shared between sessions; the tokenizer is.
type EngineProvider interface {
	Tokenizer() tokenizer.Tokenizer
	NewEngine(capacity int) (inference.Engine, error)
}

type Server struct {
	provider EngineProvider
	registry *Registry
	defaults inference.SessionConfig
	log      logger.Logger
	clock    func() time.Time
}

// NewServer builds a server whose sessions start from defaults. A nil log
// discards output.
func NewServer(provider EngineProvider, defaults inference.SessionConfig, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		provider: provider,
		registry: NewRegistry(),
		defaults: defaults,
		log:      log,
		clock:    time.Now,
	}
}

func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/generations", s.handleCreate)
	e.GET("/v1/generations", s.handleList)
	e.DELETE("/v1/generations/:id", s.handleStop)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "sessions": s.registry.Len()})
}

func (s *Server) handleList(c *echo.Context) error {
	return c.JSON(http.StatusOK, SessionList{Object: "list", Data: s.registry.List()})
}

func (s *Server) handleStop(c *echo.Context) error {
	id := c.Param("id")
	if !s.registry.Stop(id) {
		return writeNotFound(c, "no running session "+id)
	}
	s.log.Info("operator stop requested", "session", id)
	return c.JSON(http.StatusAccepted, StopResponse{ID: id, Status: "stopping"})
}

func (s *Server) handleCreate(c *echo.Context) error {
	if s.provider == nil {
		return writeError(c, http.StatusInternalServerError, ErrorBody{Message: "engine provider not configured", Type: "server_error"})
	}
	req, err := decodeJSON[GenerationRequest](c.Request().Body)
	if err != nil {
		return writeErr(c, err)
	}
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.UserPrompt) == "" {
		return writeErr(c, newInvalidRequest("prompt", "prompt is required"))
	}
	cfg := req.apply(s.defaults)
	if err := cfg.Validate(); err != nil {
		return writeErr(c, err)
	}

	engine, err := s.provider.NewEngine(cfg.Capacity)
	if err != nil {
		return writeErr(c, err)
	}
	prompt := inference.BuildPrompt(req.Prompt, req.UserPrompt)
	sess, err := inference.NewSession(engine, s.provider.Tokenizer(), cfg, prompt, s.log)
	if err != nil {
		return writeErr(c, err)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	live := s.registry.add(sess.ID(), cancel, s.clock())
	defer s.registry.remove(sess.ID())
	count := output.SinkFunc(func(string) error {
		live.fragments.Add(1)
		return nil
	})

	if req.streaming() {
		return s.stream(c, ctx, sess, cfg, count)
	}

	text := &output.Collector{}
	res, runErr := sess.Run(ctx, output.Tee(count, text))
	resp := response(res, runErr)
	resp.Text = text.String()
	status := http.StatusOK
	if res.State == inference.StateEngineFailed {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, resp)
}

func (s *Server) stream(c *echo.Context, ctx context.Context, sess *inference.Session, cfg inference.SessionConfig, count output.Sink) error {
	sse, err := NewSSEWriter(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, ErrorBody{Message: err.Error(), Type: "invalid_request_error"})
	}
	if err := sse.Session(SessionEvent{
		ID:           sess.ID(),
		Seed:         sess.Seed(),
		PromptTokens: sess.PromptTokens(),
		Capacity:     cfg.Capacity,
		Threshold:    sess.Threshold(),
	}); err != nil {
		return err
	}

	res, runErr := sess.Run(ctx, output.Tee(count, sse))
	if res.State == inference.StateOutputFailed || c.Request().Context().Err() != nil {
		// Client is gone.
		return nil
	}
	if res.State == inference.StateEngineFailed {
		return sse.Fail(ErrorBody{Message: response(res, runErr).Error, Type: "engine_error"})
	}
	return sse.Done(response(res, runErr))
}

func response(res *inference.Result, err error) GenerationResponse {
	resp := GenerationResponse{Result: res, Diagnostic: res.State.Diagnostic()}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
