package widgets

import (
	"testing"

	"github.com/elektrokombinacija/fleet-traffic/internal/core"
)

func TestStateSummary(t *testing.T) {
	if got := stateSummary(nil); got != "No robots. Click a vertex to spawn one." {
		t.Errorf("Expected empty fleet hint, got %q", got)
	}

	counts := map[core.AgentState]int{
		core.StateWaiting: 1,
		core.StateIdle:    2,
	}
	if got, want := stateSummary(counts), "IDLE 2  WAITING 1"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
