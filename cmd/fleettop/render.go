package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
)

var stateColors = map[core.AgentState]tcell.Color{
	core.StateIdle:         tcell.ColorGray,
	core.StateMoving:       tcell.ColorGreen,
	core.StateWaiting:      tcell.ColorOrange,
	core.StateCharging:     tcell.ColorYellow,
	core.StateTaskComplete: tcell.ColorDarkCyan,
	core.StateBatteryDead:  tcell.ColorRed,
}

func renderAgentsTable(table *tview.Table, agents []fleet.AgentView) {
	table.Clear()
	headers := []string{"Agent", "State", "Battery", "At", "Destination", "Route", "Odometer"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, a := range agents {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(a.Label))
		table.SetCell(row, 1, tview.NewTableCell(a.State.String()).SetTextColor(stateColors[a.State]))
		table.SetCell(row, 2, tview.NewTableCell(batteryBar(a.Battery, 10)))
		table.SetCell(row, 3, tview.NewTableCell(location(a)))
		table.SetCell(row, 4, tview.NewTableCell(destination(a)))
		table.SetCell(row, 5, tview.NewTableCell(trimLine(routeText(a.Path), 40)))
		table.SetCell(row, 6, tview.NewTableCell(fmt.Sprintf("%.1f", a.Odometer)))
	}
}

// batteryBar draws a fixed-width gauge followed by the percentage.
func batteryBar(level float64, width int) string {
	filled := int(level / core.BatteryFull * float64(width))
	filled = max(0, min(width, filled))
	color := "green"
	switch {
	case level < 10:
		color = "red"
	case level < core.DefaultLowBattery:
		color = "orange"
	}
	return fmt.Sprintf("[%s]%s[white]%s %3.0f%%", color,
		strings.Repeat("|", filled), strings.Repeat(".", width-filled), level)
}

func location(a fleet.AgentView) string {
	if a.OnEdge {
		return fmt.Sprintf("%d->%d %.0f%%", a.From, a.To, a.Progress*100)
	}
	return strconv.Itoa(int(a.Vertex))
}

func destination(a fleet.AgentView) string {
	if a.Destination == nil {
		return "-"
	}
	s := strconv.Itoa(int(*a.Destination))
	if a.Recovering {
		s += " (recovery)"
	}
	return s
}

func routeText(p core.Path) string {
	if len(p) == 0 {
		return "-"
	}
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, " ")
}

func renderBlocked(edges []core.EdgeKey) string {
	if len(edges) == 0 {
		return "None"
	}
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = e.String()
	}
	return strings.Join(parts, "  ")
}

func renderEvents(events []fleet.Event) string {
	if len(events) == 0 {
		return "No events"
	}
	var b strings.Builder
	for _, e := range events {
		color := "white"
		if e.Kind.Notification() {
			color = "red"
		}
		fmt.Fprintf(&b, "[gray]%6d[-] [%s]%-19s[-] %s\n", e.Tick, color, e.Kind, e.Message)
	}
	return b.String()
}

func renderCounts(snap fleet.Snapshot) string {
	counts := snap.CountStates()
	parts := []string{fmt.Sprintf("%d agents", len(snap.Agents))}
	for _, s := range core.AllStates() {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", s, n))
		}
	}
	return strings.Join(parts, " | ")
}

func trimLine(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

type request struct {
	path string
	body map[string]any
}

var errUsage = errors.New("usage: spawn <v> | task <id> <v> [!] | battery <id> <level>")

// parseCommand turns an input line into an API call. A trailing "!" on a
// task sets the override flag.
func parseCommand(line string) (request, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return request{}, errUsage
	}
	ints := func(args []string) ([]int, error) {
		out := make([]int, len(args))
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", a)
			}
			out[i] = n
		}
		return out, nil
	}

	switch strings.ToLower(f[0]) {
	case "spawn":
		if len(f) != 2 {
			return request{}, errUsage
		}
		n, err := ints(f[1:])
		if err != nil {
			return request{}, err
		}
		return request{path: "/api/agents", body: map[string]any{"vertex": n[0]}}, nil

	case "task":
		override := len(f) == 4 && f[3] == "!"
		if len(f) != 3 && !override {
			return request{}, errUsage
		}
		n, err := ints(f[1:3])
		if err != nil {
			return request{}, err
		}
		return request{
			path: fmt.Sprintf("/api/agents/%d/task", n[0]),
			body: map[string]any{"destination": n[1], "override": override},
		}, nil

	case "battery":
		if len(f) != 3 {
			return request{}, errUsage
		}
		id, err := strconv.Atoi(f[1])
		if err != nil {
			return request{}, fmt.Errorf("%q is not an integer", f[1])
		}
		level, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return request{}, fmt.Errorf("%q is not a number", f[2])
		}
		return request{
			path: fmt.Sprintf("/api/agents/%d/battery", id),
			body: map[string]any{"level": level},
		}, nil
	}
	return request{}, errUsage
}
