// Package web serves the fleet over HTTP and a websocket snapshot stream.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/elektrokombinacija/fleet-traffic/internal/algo"
	"github.com/elektrokombinacija/fleet-traffic/internal/config"
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/journal"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
)

const recentEvents = 256

// History serves persisted events.
type History interface {
	Recent(limit int) ([]journal.EventRecord, error)
}

type Server struct {
	fleet     *fleet.Fleet
	sim       *sim.Simulator
	history   History
	hub       *Hub
	cfg       config.WebConfig
	log       *slog.Logger
	app       *fiber.App
	startedAt time.Time

	mu     sync.Mutex
	events []fleet.Event
}

type Option func(*Server)

// WithSimulator exposes metrics and pause/step controls.
func WithSimulator(s *sim.Simulator) Option {
	return func(srv *Server) { srv.sim = s }
}

// WithHistory serves /api/events from a journal instead of memory.
func WithHistory(h History) Option {
	return func(srv *Server) { srv.history = h }
}

func NewServer(f *fleet.Fleet, cfg config.WebConfig, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		fleet:     f,
		hub:       NewHub(log),
		cfg:       cfg,
		log:       log,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(s.requestID)
	s.app.Use(s.accessLog)
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	s.registerAPI()

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))
	return s
}

// App returns the fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Publish implements fleet.Sink: it streams the snapshot and keeps recent
// events in memory.
func (s *Server) Publish(snap fleet.Snapshot) {
	s.hub.Broadcast(Message{Type: MessageSnapshot, Payload: snap})

	if len(snap.Events) == 0 {
		return
	}
	s.mu.Lock()
	s.events = append(s.events, snap.Events...)
	if over := len(s.events) - recentEvents; over > 0 {
		s.events = append(s.events[:0], s.events[over:]...)
	}
	s.mu.Unlock()

	for _, e := range snap.Events {
		if e.Kind.Notification() {
			s.hub.Broadcast(Message{Type: MessageNotification, Payload: e})
		}
	}
}

// Start serves on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.hub.Run(ctx)
	go func() {
		<-ctx.Done()
		s.app.ShutdownWithTimeout(5 * time.Second)
	}()

	s.log.Info("web server listening", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get(fiber.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals("request_id", id)
	c.Set(fiber.HeaderXRequestID, id)
	return c.Next()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler pick the status before it is logged
		if herr := s.handleError(c, err); herr != nil {
			c.Status(fiber.StatusInternalServerError)
		}
	}
	s.log.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start),
		"request_id", c.Locals("request_id"))
	return nil
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":      err.Error(),
		"request_id": c.Locals("request_id"),
	})
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, fleet.ErrUnknownAgent):
		return fiber.StatusNotFound
	case errors.Is(err, fleet.ErrVertexOccupied), errors.Is(err, fleet.ErrAgentBusy):
		return fiber.StatusConflict
	case errors.Is(err, core.ErrUnknownVertex), errors.Is(err, fleet.ErrNotCharger),
		errors.Is(err, fleet.ErrUnknownCommand), errors.Is(err, algo.ErrNoPath):
		return fiber.StatusBadRequest
	case errors.Is(err, fleet.ErrFatal):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
