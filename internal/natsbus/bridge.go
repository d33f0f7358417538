package natsbus

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
)

// Publisher forwards fleet snapshots and events to the bus.
type Publisher struct {
	client *Client
	log    *slog.Logger
}

func NewPublisher(client *Client, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{client: client, log: log}
}

// Publish implements fleet.Sink.
func (p *Publisher) Publish(s fleet.Snapshot) {
	if err := p.client.PublishJSON(TopicSnapshot, s); err != nil {
		p.log.Error("publish snapshot", "tick", s.Tick, "error", err)
		return
	}
	for _, e := range s.Events {
		if err := p.client.PublishJSON(TopicEvent(e.Kind), e); err != nil {
			p.log.Error("publish event", "kind", e.Kind, "error", err)
		}
	}
}

// Commander accepts operator commands.
type Commander interface {
	Check(cmd fleet.Command) error
	Submit(cmd fleet.Command) error
}

// Reply answers a command request.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CommandListener submits commands received on TopicCommand.
type CommandListener struct {
	client *Client
	target Commander
	log    *slog.Logger
	sub    *nats.Subscription
}

// ListenCommands subscribes to TopicCommand. Requests with a reply subject
// get a Reply once the command has been checked and queued.
func ListenCommands(client *Client, target Commander, log *slog.Logger) (*CommandListener, error) {
	if log == nil {
		log = slog.Default()
	}
	l := &CommandListener{client: client, target: target, log: log}
	sub, err := client.Subscribe(TopicCommand, l.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe commands: %w", err)
	}
	l.sub = sub
	return l, nil
}

func (l *CommandListener) handle(msg *nats.Msg) {
	err := l.submit(msg.Data)
	if err != nil {
		l.log.Warn("command rejected", "error", err)
	}
	if msg.Reply == "" {
		return
	}

	reply := Reply{OK: err == nil}
	if err != nil {
		reply.Error = err.Error()
	}
	if err := l.client.PublishJSON(msg.Reply, reply); err != nil {
		l.log.Error("command reply", "error", err)
	}
}

func (l *CommandListener) submit(data []byte) error {
	var cmd fleet.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	if cmd.Kind == fleet.CommandSpawn {
		cmd.Agent = fleet.NoAgent
	}
	if err := l.target.Check(cmd); err != nil {
		return err
	}
	return l.target.Submit(cmd)
}

func (l *CommandListener) Close() error {
	return l.sub.Unsubscribe()
}
