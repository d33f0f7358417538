package web

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/elektrokombinacija/fleet-traffic/internal/algo"
	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/navgraph"
)

func (s *Server) registerAPI() {
	api := s.app.Group("/api")

	api.Get("/health", s.getHealth)
	api.Get("/graph", s.getGraph)
	api.Get("/snapshot", s.getSnapshot)
	api.Get("/events", s.getEvents)
	api.Get("/routes", s.getRoutes)

	agents := api.Group("/agents")
	agents.Get("/:id", s.getAgent)
	agents.Post("/", s.spawnAgent)
	agents.Post("/:id/task", s.assignTask)
	agents.Post("/:id/battery", s.setBattery)

	simAPI := api.Group("/sim")
	simAPI.Get("/metrics", s.getMetrics)
	simAPI.Post("/pause", s.pauseSim)
	simAPI.Post("/resume", s.resumeSim)
	simAPI.Post("/step", s.stepSim)
}

func (s *Server) getHealth(c *fiber.Ctx) error {
	status := "OK"
	if s.fleet.Err() != nil {
		status = "HALTED"
	}
	snap := s.fleet.Snapshot()
	return c.JSON(fiber.Map{
		"status":  status,
		"tick":    snap.Tick,
		"agents":  len(snap.Agents),
		"clients": s.hub.ClientCount(),
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *Server) getGraph(c *fiber.Ctx) error {
	return c.JSON(navgraph.FromGraph(s.fleet.Graph()))
}

func (s *Server) getSnapshot(c *fiber.Ctx) error {
	return c.JSON(s.fleet.Snapshot())
}

func (s *Server) getAgent(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "agent id must be an integer")
	}
	a, ok := s.fleet.Snapshot().Agent(core.AgentID(id))
	if !ok {
		return fmt.Errorf("%w %d", fleet.ErrUnknownAgent, id)
	}
	return c.JSON(a)
}

func (s *Server) getEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > recentEvents {
		limit = recentEvents
	}

	if s.history != nil {
		records, err := s.history.Recent(limit)
		if err != nil {
			return err
		}
		events := make([]fleet.Event, len(records))
		for i, r := range records {
			events[i] = fleet.Event{
				Tick:    r.Tick,
				Kind:    fleet.EventKind(r.Kind),
				Agent:   core.AgentID(r.Agent),
				Vertex:  core.VertexID(r.Vertex),
				Message: r.Message,
			}
		}
		return c.JSON(events)
	}

	// Newest first, matching the journal
	s.mu.Lock()
	n := min(limit, len(s.events))
	events := make([]fleet.Event, 0, n)
	for i := len(s.events) - 1; i >= len(s.events)-n; i-- {
		events = append(events, s.events[i])
	}
	s.mu.Unlock()
	return c.JSON(events)
}

func (s *Server) getRoutes(c *fiber.Ctx) error {
	from, to := c.QueryInt("from", -1), c.QueryInt("to", -1)
	g := s.fleet.Graph()
	if !g.Has(core.VertexID(from)) || !g.Has(core.VertexID(to)) {
		return fmt.Errorf("routes %d -> %d: %w", from, to, core.ErrUnknownVertex)
	}
	k := c.QueryInt("k", 3)
	if k < 1 || k > 10 {
		return fiber.NewError(fiber.StatusBadRequest, "k must be between 1 and 10")
	}

	paths := algo.Alternatives(g, core.VertexID(from), core.VertexID(to), k)
	routes := make([]fiber.Map, len(paths))
	for i, p := range paths {
		routes[i] = fiber.Map{"path": p, "length": p.Length(g)}
	}
	return c.JSON(routes)
}

type spawnRequest struct {
	Vertex *int `json:"vertex"`
}

type taskRequest struct {
	Destination *int `json:"destination"`
	Override    bool `json:"override"`
}

type batteryRequest struct {
	Level *float64 `json:"level"`
}

func (s *Server) spawnAgent(c *fiber.Ctx) error {
	var req spawnRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Vertex == nil {
		return fiber.NewError(fiber.StatusBadRequest, "vertex is required")
	}
	return s.submit(c, fleet.SpawnCommand(core.VertexID(*req.Vertex)))
}

func (s *Server) assignTask(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "agent id must be an integer")
	}
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Destination == nil {
		return fiber.NewError(fiber.StatusBadRequest, "destination is required")
	}
	return s.submit(c, fleet.AssignCommand(core.Task{
		Agent:       core.AgentID(id),
		Destination: core.VertexID(*req.Destination),
		Override:    req.Override,
	}))
}

func (s *Server) setBattery(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "agent id must be an integer")
	}
	var req batteryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Level == nil {
		return fiber.NewError(fiber.StatusBadRequest, "level is required")
	}
	return s.submit(c, fleet.BatteryCommand(core.AgentID(id), *req.Level))
}

// submit checks cmd against the current state and queues it. Commands are
// applied on the next tick, so acceptance is 202.
func (s *Server) submit(c *fiber.Ctx, cmd fleet.Command) error {
	if err := s.fleet.Check(cmd); err != nil {
		return err
	}
	if err := s.fleet.Submit(cmd); err != nil {
		return err
	}
	s.log.Info("command queued", "command", cmd.String(), "request_id", c.Locals("request_id"))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "queued",
		"command": cmd,
	})
}

func (s *Server) requireSim() error {
	if s.sim == nil {
		return fiber.NewError(fiber.StatusNotFound, "simulator not attached")
	}
	return nil
}

func (s *Server) getMetrics(c *fiber.Ctx) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	return c.JSON(s.sim.Metrics())
}

func (s *Server) pauseSim(c *fiber.Ctx) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	s.sim.Pause()
	return c.JSON(fiber.Map{"paused": true})
}

func (s *Server) resumeSim(c *fiber.Ctx) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	s.sim.Resume()
	return c.JSON(fiber.Map{"paused": false})
}

func (s *Server) stepSim(c *fiber.Ctx) error {
	if err := s.requireSim(); err != nil {
		return err
	}
	if !s.sim.Paused() {
		return fiber.NewError(fiber.StatusConflict, "pause the simulation before stepping")
	}
	snap, err := s.sim.Step()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tick": snap.Tick})
}
