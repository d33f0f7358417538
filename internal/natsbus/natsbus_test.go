package natsbus

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/elektrokombinacija/fleet-traffic/internal/config"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/navgraph"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startBus(t *testing.T) (*Bus, *Client) {
	t.Helper()
	bus, err := New(config.NATSConfig{Port: -1})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	t.Cleanup(bus.Close)

	client, err := NewClient(bus)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(client.Close)
	return bus, client
}

func newFleet(t *testing.T, opts ...fleet.Option) *fleet.Fleet {
	t.Helper()
	g, err := navgraph.Grid(3, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	return fleet.New(g, fleet.DefaultParams(), append([]fleet.Option{fleet.WithLogger(quietLogger())}, opts...)...)
}

func TestBusStartStop(t *testing.T) {
	bus, _ := startBus(t)
	if url := bus.ClientURL(); !strings.HasPrefix(url, "nats://") {
		t.Errorf("expected nats:// client URL, got %q", url)
	}
}

func TestPubSub(t *testing.T) {
	_, client := startBus(t)

	received := make(chan string, 1)
	_, err := client.Subscribe("test.topic", func(msg *nats.Msg) {
		received <- string(msg.Data)
	})
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}

	if err := client.Publish("test.topic", []byte("hello")); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	client.Flush()

	select {
	case data := <-received:
		if data != "hello" {
			t.Errorf("expected 'hello', got '%s'", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublisherForwardsSnapshotsAndEvents(t *testing.T) {
	_, client := startBus(t)

	snaps := make(chan fleet.Snapshot, 4)
	events := make(chan string, 16)
	if _, err := client.Subscribe(TopicSnapshot, func(msg *nats.Msg) {
		var s fleet.Snapshot
		if err := json.Unmarshal(msg.Data, &s); err == nil {
			snaps <- s
		}
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Subscribe(TopicEvents, func(msg *nats.Msg) {
		events <- msg.Subject
	}); err != nil {
		t.Fatal(err)
	}
	client.Flush()

	f := newFleet(t, fleet.WithSink(NewPublisher(client, quietLogger())))
	if err := f.Spawn(1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Tick(); err != nil {
		t.Fatal(err)
	}
	client.Flush()

	select {
	case s := <-snaps:
		if s.Tick != 1 || len(s.Agents) != 1 {
			t.Errorf("expected tick 1 with one agent, got tick %d with %d agents", s.Tick, len(s.Agents))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
	}

	select {
	case subject := <-events:
		if subject != "fleet.event.spawned" {
			t.Errorf("expected fleet.event.spawned, got %s", subject)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestCommandListener(t *testing.T) {
	_, client := startBus(t)
	f := newFleet(t)

	listener, err := ListenCommands(client, f, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	client.Flush()

	request := func(payload string) Reply {
		t.Helper()
		msg, err := client.Request(TopicCommand, []byte(payload), 2*time.Second)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var r Reply
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			t.Fatalf("bad reply %q: %v", msg.Data, err)
		}
		return r
	}

	if r := request(`{"kind": "spawn", "vertex": 5}`); !r.OK {
		t.Fatalf("expected spawn accepted, got %+v", r)
	}
	snap, err := f.Tick()
	if err != nil {
		t.Fatal(err)
	}
	if a, ok := snap.Agent(0); !ok || a.Vertex != 5 {
		t.Fatalf("expected agent 0 at vertex 5, got %+v", snap.Agents)
	}

	if r := request(`{"kind": "assign", "agent": 0, "vertex": 9}`); !r.OK {
		t.Errorf("expected assign accepted, got %+v", r)
	}

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"unknown vertex", `{"kind": "spawn", "vertex": 42}`, "unknown vertex"},
		{"occupied", `{"kind": "spawn", "vertex": 5}`, "occupied"},
		{"unknown agent", `{"kind": "assign", "agent": 7, "vertex": 1}`, "unknown agent"},
		{"unknown kind", `{"kind": "teleport"}`, "unknown command"},
		{"malformed", `{"kind": `, "decode command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := request(tt.payload)
			if r.OK {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(r.Error, tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, r.Error)
			}
		})
	}
}

func TestTopicNames(t *testing.T) {
	if got := TopicEvent(fleet.EventBatteryDead); got != "fleet.event.battery_dead" {
		t.Errorf("expected fleet.event.battery_dead, got %s", got)
	}
}
