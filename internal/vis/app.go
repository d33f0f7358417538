// Package vis implements a Gio-based live view of a fleet: the graph,
// agents and their routes, with click-to-spawn and click-to-assign.
package vis

import (
	"context"
	"errors"
	"image/color"
	"log/slog"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/fleet-traffic/internal/fleet"
	"github.com/elektrokombinacija/fleet-traffic/internal/sim"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/interact"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/state"
	"github.com/elektrokombinacija/fleet-traffic/internal/vis/widgets"
)

// App is the main visualization application.
type App struct {
	state     *state.State
	theme     *material.Theme
	workspace *widgets.Workspace
	panel     *widgets.Panel
	toolbar   *widgets.Toolbar
	camera    *interact.Camera
	log       *slog.Logger
}

// NewApp creates a viewer for the simulator's fleet.
func NewApp(s *sim.Simulator, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	st := state.NewState(s.Fleet(), s)
	camera := interact.NewCamera()

	return &App{
		state:     st,
		theme:     material.NewTheme(),
		workspace: widgets.NewWorkspace(st, camera),
		panel:     widgets.NewPanel(st),
		toolbar:   widgets.NewToolbar(st, camera),
		camera:    camera,
		log:       log,
	}
}

// Run ticks the simulator in the background and runs the window event
// loop until the window is closed.
func (a *App) Run(w *app.Window) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.state.Fleet.AddSink(fleet.SinkFunc(func(fleet.Snapshot) { w.Invalidate() }))

	simErr := make(chan error, 1)
	go func() {
		_, err := a.state.Sim.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("simulation stopped", "err", err)
		}
		simErr <- err
	}()

	var ops op.Ops
	tag := new(int)

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			cancel()
			<-simErr
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag, Optional: key.ModShift})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKeyEvent(ke)
				}
			}
			event.Op(gtx.Ops, tag)

			a.state.Refresh()
			a.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (a *App) handleKeyEvent(e key.Event) {
	switch e.Name {
	case key.NameSpace:
		a.state.TogglePause()
	case key.NameRightArrow:
		a.state.Step()
	case key.NameEscape:
		a.state.Selected = fleet.NoAgent
	case "O":
		a.state.Override = !a.state.Override
	case "R":
		a.camera.Reset()
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.toolbar.Layout(gtx, a.theme)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return a.workspace.Layout(gtx, a.theme)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return a.panel.Layout(gtx, a.theme)
				}),
			)
		}),
	)
}
