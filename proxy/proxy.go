// Package proxy provides the chat proxy: it forwards a visitor's question to
// the configured answer provider and normalizes the reply into a uniform JSON
// shape.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/answer"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/merkle"
)

// HeaderRequestID carries the correlation ID assigned to each chat request.
const HeaderRequestID = "X-Request-ID"

const (
	processingFailedPrefix = "Failed to process your request: "
	unavailableMessage     = "Backend service is unavailable. Please try again later."
)

// Proxy is the HTTP front for an answer.Provider. It holds no per-visitor
// state. When enabled, answered exchanges are kept in a bounded in-memory
// transcript for inspection while the process runs.
type Proxy struct {
	config     Config
	provider   answer.Provider
	transcript *transcript
	logger     *zap.Logger
	server     *fiber.App
}

// New creates a new Proxy.
func New(config Config, provider answer.Provider, logger *zap.Logger) (*Proxy, error) {
	if provider == nil {
		return nil, errors.New("proxy requires an answer provider")
	}

	p := &Proxy{
		config:   config,
		provider: provider,
		logger:   logger,
	}
	if config.Transcript {
		p.transcript = newTranscript(merkle.NewMemoryStorer(), config.TranscriptLimit)
	}

	p.server = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          p.handleError,
	})
	p.server.Use(recover.New())
	p.registerRoutes(p.server)

	return p, nil
}

func (p *Proxy) registerRoutes(app *fiber.App) {
	app.Post("/api/chat", p.handleChat)
	app.Options("/api/chat", p.handleChatOptions)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	if p.transcript != nil {
		app.Get("/transcript/stats", p.handleTranscriptStats)
		app.Get("/transcript/node/:hash", p.handleGetNode)
		app.Get("/transcript", p.handleListHistories)
		app.Get("/transcript/:hash", p.handleGetHistory)
	}

	version := p.config.Version
	if version == "" {
		version = "dev"
	}
	app.All("/mcp", adaptor.HTTPHandler(NewMCPHandler(p.provider, version, p.logger)))
}

// Run starts the proxy server on the configured listening address.
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server", zap.String("listen", p.config.ListenAddr))
	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server", zap.String("listen", listener.Addr().String()))
	return p.server.Listener(listener)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (p *Proxy) Shutdown() error {
	return p.server.Shutdown()
}

// Close releases the transcript store.
func (p *Proxy) Close() error {
	if p.transcript == nil {
		return nil
	}
	return p.transcript.storer.Close()
}

// handleChat answers one question. Every outcome is a JSON body: the answer
// under "message", or a description under "error".
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()
	requestID := uuid.NewString()
	c.Set(HeaderRequestID, requestID)
	log := p.logger.With(zap.String("request_id", requestID))

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Error("failed to parse request", zap.Error(err))
		return p.fail(c, log, fmt.Errorf("invalid request body: %w", err))
	}

	log.Debug("received chat request",
		zap.Bool("has_message", req.Message != nil),
		zap.String("message_preview", logger.Truncate(string(req.Message), 100)),
	)

	reply, err := p.provider.Ask(c.UserContext(), req.Message)
	if err != nil {
		return p.fail(c, log, err)
	}

	log.Debug("received answer",
		zap.String("answer_preview", logger.Truncate(reply, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	if p.transcript != nil && req.Message != nil {
		p.recordExchange(c.UserContext(), log, llm.QuestionText(req.Message), reply)
	}

	return c.JSON(llm.ChatResponse{Message: reply})
}

// handleChatOptions satisfies cross-origin preflight requests.
func (p *Proxy) handleChatOptions(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{})
}

// fail maps a provider error to a status code and JSON error body.
func (p *Proxy) fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	if answer.IsUnavailable(err) {
		log.Error("backend unavailable", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: unavailableMessage})
	}

	var statusErr *answer.StatusError
	if errors.As(err, &statusErr) {
		log.Error("backend returned error",
			zap.Int("status", statusErr.StatusCode),
			zap.String("body", logger.Truncate(statusErr.Body, 500)),
		)
	} else {
		log.Error("chat request failed", zap.Error(err))
	}

	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: processingFailedPrefix + err.Error()})
}

// handleError is the last line of defense: routing errors and recovered
// panics still come back as JSON.
func (p *Proxy) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := processingFailedPrefix + err.Error()

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	p.logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", code),
		zap.Error(err),
	)
	return c.Status(code).JSON(llm.ErrorResponse{Error: message})
}

// recordExchange adds a question and its answer to the transcript. Failures
// are logged and never affect the response.
func (p *Proxy) recordExchange(ctx context.Context, log *zap.Logger, question, reply string) {
	head, err := p.transcript.record(ctx, question, reply)
	if err != nil {
		log.Warn("failed to record exchange", zap.Error(err))
		return
	}

	log.Debug("exchange recorded", zap.String("head_hash", logger.Truncate(head, 16)))
}
