// Command fleettop is a terminal monitor for a running fleetsim.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
)

type client struct {
	baseURL string
	http    *http.Client
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "fleetsim base URL")
	interval := flag.Duration("interval", 500*time.Millisecond, "refresh interval")
	eventLimit := flag.Int("events", 100, "events to show")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}

	app := tview.NewApplication()
	agentsTable := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)
	agentsTable.SetTitle("Agents").SetBorder(true)

	eventsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	eventsView.SetTitle("Events").SetBorder(true)

	blockedView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	blockedView.SetTitle("Held edges").SetBorder(true)

	commandInput := tview.NewInputField().
		SetLabel("> ")
	commandInput.SetBorder(true).SetTitle("spawn <v> | task <id> <v> [!] | battery <id> <level>")

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf("Connecting to %s | F10 quit, F5 refresh", c.baseURL))

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(blockedView, 6, 0, false).
		AddItem(eventsView, 0, 1, false)
	mainLayout := tview.NewFlex().
		AddItem(agentsTable, 0, 3, false).
		AddItem(right, 0, 2, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 1, false).
		AddItem(commandInput, 3, 0, true).
		AddItem(statusView, 3, 0, false)

	setStatusAsync := func(msg string) {
		app.QueueUpdateDraw(func() {
			statusView.SetText(msg)
		})
	}

	refresh := func() {
		var snap fleet.Snapshot
		if err := c.getJSON("/api/snapshot", &snap); err != nil {
			setStatusAsync("[red]snapshot: " + err.Error())
			return
		}
		var events []fleet.Event
		if err := c.getJSON(fmt.Sprintf("/api/events?limit=%d", *eventLimit), &events); err != nil {
			setStatusAsync("[red]events: " + err.Error())
			return
		}
		app.QueueUpdateDraw(func() {
			renderAgentsTable(agentsTable, snap.Agents)
			blockedView.SetText(renderBlocked(snap.BlockedEdges))
			eventsView.SetText(renderEvents(events))
			statusView.SetText(fmt.Sprintf("%s | tick %d | %s", c.baseURL, snap.Tick, renderCounts(snap)))
		})
	}

	commandInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := commandInput.GetText()
		commandInput.SetText("")
		go func() {
			req, err := parseCommand(line)
			if err != nil {
				setStatusAsync("[red]" + err.Error())
				return
			}
			if err := c.postJSON(req.path, req.body); err != nil {
				setStatusAsync("[red]" + err.Error())
				return
			}
			setStatusAsync("queued: " + strings.TrimSpace(line))
			refresh()
		}()
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10:
			app.Stop()
			return nil
		case tcell.KeyF5:
			go refresh()
			return nil
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

		refresh()
		for range ticker.C {
			refresh()
		}
	}()

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(commandInput).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fleettop failed: %v\n", err)
		os.Exit(1)
	}
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

func (c *client) postJSON(path string, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
