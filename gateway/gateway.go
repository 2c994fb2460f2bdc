// Package gateway provides the chatrelay HTTP server: an OpenAI-style chat
// completions endpoint backed by Bedrock and hosted model endpoints, and a
// relay endpoint that re-segments the same stream into messages for a
// third-party messaging transport.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/papercomputeco/chatrelay/gateway/worker"
	"github.com/papercomputeco/chatrelay/pkg/chat"
	"github.com/papercomputeco/chatrelay/pkg/eventstream"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider"
	"github.com/papercomputeco/chatrelay/pkg/relay"
	"github.com/papercomputeco/chatrelay/pkg/sse"
	"github.com/papercomputeco/chatrelay/pkg/stream"
)

const (
	chatPath   = "/v1/chat/completions"
	relayPath  = "/v1/relay/completions"
	modelsPath = "/v1/models"
	healthPath = "/healthz"

	defaultHeartbeat = 15 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// Gateway serves chat completions and relays them.
type Gateway struct {
	config     Config
	chat       *chat.Service
	segmenter  *relay.Segmenter
	publisher  eventstream.Publisher
	workerPool *worker.Pool
	logger     *slog.Logger
	server     *fiber.App

	// baseCtx outlives individual requests: fasthttp recycles its request
	// context when the handler returns, but streams and relays keep running.
	baseCtx  context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

// New creates a Gateway. sender may be nil, in which case the relay
// endpoint answers 503. Completion events are published through publisher.
func New(config Config, svc *chat.Service, sender relay.Sender, publisher eventstream.Publisher, logger *slog.Logger) (*Gateway, error) {
	if svc == nil {
		return nil, errors.New("chat service is required")
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher:  publisher,
		NumWorkers: config.NumWorkers,
		QueueSize:  config.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		config:     config,
		chat:       svc,
		publisher:  publisher,
		workerPool: wp,
		logger:     logger,
		server:     app,
		baseCtx:    ctx,
		cancel:     cancel,
	}
	if sender != nil {
		g.segmenter = relay.NewSegmenter(sender, relay.Options{
			FlushThreshold:  config.Relay.FlushThreshold,
			MaxMessageBytes: config.Relay.MaxMessageBytes,
			SendTimeout:     config.Relay.SendTimeout,
		}, logger)
	}

	app.Get(healthPath, g.handleHealth)
	app.Get(modelsPath, g.handleModels)
	app.Post(chatPath, g.handleChat)
	app.Post(relayPath, g.handleRelay)

	return g, nil
}

// Run starts the gateway server on the configured listening address
func (g *Gateway) Run() error {
	g.logger.Info("starting gateway server", "listen", g.config.ListenAddr)
	return g.server.Listen(g.config.ListenAddr)
}

// RunWithListener starts the gateway server using the provided listener.
func (g *Gateway) RunWithListener(listener net.Listener) error {
	g.logger.Info("starting gateway server", "listen", listener.Addr().String())
	return g.server.Listener(listener)
}

// Close aborts in-flight streams and relays (each relay drains what it has
// buffered), stops accepting requests, waits for pending events to be
// published and closes the publisher. Streams are aborted first: the server
// only finishes shutting down once no response is being written.
func (g *Gateway) Close() error {
	g.cancel()
	err := g.server.ShutdownWithTimeout(shutdownTimeout)
	g.sessions.Wait()
	g.workerPool.Close()
	return errors.Join(err, g.publisher.Close())
}

func (g *Gateway) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type modelRule struct {
	Pattern string `json:"pattern"`
	Family  string `json:"family"`
}

func (g *Gateway) handleModels(c *fiber.Ctx) error {
	table := provider.FamilyTable()
	rules := make([]modelRule, 0, len(table))
	for _, r := range table {
		rules = append(rules, modelRule{Pattern: r.Pattern, Family: string(r.Family)})
	}
	return c.JSON(fiber.Map{
		"object":   "list",
		"families": provider.SupportedFamilies(),
		"data":     rules,
	})
}

// requestMeta carries per-request values into the completion event.
type requestMeta struct {
	path      string
	requestID string
	started   time.Time
	streaming bool
}

func (g *Gateway) newMeta(c *fiber.Ctx, streaming bool) requestMeta {
	return requestMeta{
		path:      c.Path(),
		requestID: c.GetRespHeader(fiber.HeaderXRequestID),
		started:   time.Now(),
		streaming: streaming,
	}
}

// handleChat serves POST /v1/chat/completions.
func (g *Gateway) handleChat(c *fiber.Ctx) error {
	req, _, err := parseChatRequest(c.Body())
	if err != nil {
		return writeError(c, err)
	}

	meta := g.newMeta(c, req.IsStreaming())
	session := stream.NewSession(req.Model)

	if !req.IsStreaming() {
		return g.handleCompletion(c, req, session, meta)
	}

	// The session context ends when the client goes away or the gateway
	// closes, whichever comes first.
	ctx, cancel := context.WithCancel(g.baseCtx)
	st, err := g.chat.Stream(ctx, req)
	if err != nil {
		cancel()
		g.logger.Warn("chat stream refused", "model", req.Model, "error", err)
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// io.Pipe gives per-frame backpressure: pw.Write blocks until fasthttp
	// has flushed the previous chunk to the socket.
	pr, pw := io.Pipe()
	g.sessions.Add(1)
	go g.streamToPipe(ctx, cancel, st, pw, session, meta)

	// Unknown size (-1) selects chunked transfer encoding.
	c.Context().Response.SetBodyStream(&sessionBody{PipeReader: pr, cancel: cancel}, -1)
	return nil
}

// sessionBody is the response body of one chat stream. fasthttp closes it
// when the response is complete or when writing to the client fails.
type sessionBody struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (b *sessionBody) Close() error {
	b.cancel()
	return b.PipeReader.Close()
}

func (b *sessionBody) CloseWithError(err error) error {
	b.cancel()
	return b.PipeReader.CloseWithError(err)
}

func (g *Gateway) streamToPipe(ctx context.Context, cancel context.CancelFunc, st *chat.Stream, pw *io.PipeWriter, session *stream.Session, meta requestMeta) {
	defer g.sessions.Done()
	// Release the backend connection on every exit path.
	defer st.Close()
	defer pw.Close()
	defer cancel()

	go g.heartbeat(ctx, cancel, pw)

	sum, err := stream.Copy(ctx, stream.NewEmitter(session, pw), st)
	if err != nil {
		g.logger.Warn("client stopped reading stream",
			"session", session.ID,
			"model", session.Model,
			"error", err,
		)
		if sum.FinishReason == llm.FinishNone {
			sum.FinishReason = llm.FinishError
			sum.Err = err
		}
	}

	g.logger.Info("chat stream finished",
		"session", session.ID,
		"model", session.Model,
		"family", st.Family(),
		"finish_reason", sum.FinishReason,
		"skipped_chunks", st.Skipped(),
		"duration", time.Since(meta.started),
	)

	g.publish(session, st.Family(), meta, fiber.StatusOK, outcome(len(sum.Text), sum.FinishReason, sum.Err), nil)
}

// heartbeat writes an SSE comment to pw on every tick until ctx ends. A
// disconnected client is only noticed when a write to it fails, and the
// backend may stay silent for a long time between chunks.
func (g *Gateway) heartbeat(ctx context.Context, cancel context.CancelFunc, pw *io.PipeWriter) {
	interval := g.config.Heartbeat
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w := sse.NewWriter(pw)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.WriteComment("ping"); err != nil {
				cancel()
				return
			}
		}
	}
}

func (g *Gateway) handleCompletion(c *fiber.Ctx, req *llm.ChatRequest, session *stream.Session, meta requestMeta) error {
	resp, err := g.chat.Complete(c.UserContext(), req)
	if err != nil {
		g.logger.Warn("chat completion failed", "model", req.Model, "error", err)
		if status := statusFor(err); status != fiber.StatusBadRequest {
			family, _ := provider.Resolve(req.Model)
			g.publish(session, family, meta, status, outcome(0, llm.FinishError, err), nil)
		}
		return writeError(c, err)
	}

	text := resp.Message.GetText()
	family, _ := provider.Resolve(req.Model)
	g.publish(session, family, meta, fiber.StatusOK, outcome(len(text), llm.FinishStop, nil), nil)

	return c.JSON(stream.NewCompletion(session, text))
}

type relayAccepted struct {
	ID       string `json:"id"`
	TargetID string `json:"target_id"`
}

// handleRelay serves POST /v1/relay/completions. The backend stream is
// opened before responding so unsupported models and refused calls are
// reported synchronously; segmentation and delivery run in the background.
func (g *Gateway) handleRelay(c *fiber.Ctx) error {
	if g.segmenter == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: llm.ErrorBody{
			Message: "relay is not configured",
			Type:    "server_error",
		}})
	}

	req, targetID, err := parseChatRequest(c.Body())
	if err != nil {
		return writeError(c, err)
	}
	if targetID == "" {
		return writeError(c, fmt.Errorf("%w: target_id is required", errInvalidRequest))
	}

	st, err := g.chat.Stream(g.baseCtx, req)
	if err != nil {
		g.logger.Warn("relay stream refused", "model", req.Model, "target", targetID, "error", err)
		return writeError(c, err)
	}

	session := stream.NewSession(req.Model)
	meta := g.newMeta(c, true)

	g.sessions.Add(1)
	go g.runRelay(st, session, targetID, meta)

	return c.Status(fiber.StatusAccepted).JSON(relayAccepted{ID: session.ID, TargetID: targetID})
}

func (g *Gateway) runRelay(st *chat.Stream, session *stream.Session, targetID string, meta requestMeta) {
	defer g.sessions.Done()
	defer st.Close()

	src := &countingSource{src: st}
	res := g.segmenter.Run(g.baseCtx, targetID, src)

	g.logger.Info("relay finished",
		"session", session.ID,
		"model", session.Model,
		"target", targetID,
		"delivered", res.Delivered,
		"failed", res.Failed,
		"finish_reason", res.FinishReason,
		"duration", time.Since(meta.started),
	)

	g.publish(session, st.Family(), meta, fiber.StatusAccepted, outcome(src.bytes, res.FinishReason, res.Err), &eventstream.RelayMeta{
		TargetID:  targetID,
		Delivered: res.Delivered,
		Failed:    res.Failed,
	})
}

// countingSource tallies the text bytes passing through to the segmenter.
type countingSource struct {
	src   llm.DeltaSource
	bytes int
}

func (s *countingSource) Recv(ctx context.Context) (llm.Delta, error) {
	d, err := s.src.Recv(ctx)
	s.bytes += len(d.Text)
	return d, err
}

func outcome(textBytes int, reason llm.FinishReason, err error) eventstream.Outcome {
	o := eventstream.Outcome{FinishReason: string(reason), TextBytes: textBytes}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

func (g *Gateway) publish(session *stream.Session, family provider.Family, meta requestMeta, status int, out eventstream.Outcome, relayMeta *eventstream.RelayMeta) {
	completed := time.Now()
	event := eventstream.NewCompletionEvent(
		eventstream.EventSource{Model: session.Model, Family: string(family)},
		eventstream.RequestMeta{
			SessionID:   session.ID,
			Path:        meta.path,
			RequestID:   meta.requestID,
			StartedAt:   meta.started,
			CompletedAt: completed,
			DurationMs:  completed.Sub(meta.started).Milliseconds(),
			Streaming:   meta.streaming,
			HTTPStatus:  status,
		},
		out,
	)
	event.Relay = relayMeta

	// Non-blocking enqueue for async publishing
	g.workerPool.Enqueue(worker.Job{Event: event})
}
