package ui

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeleteCascades(t *testing.T) {
	screen := NewScreen(320, 240)
	cont := NewContainer(screen)
	lbl := NewLabel(cont)
	chart := NewChart(cont, 10)

	screen.Delete()

	for _, obj := range []*Object{screen, cont, lbl, chart} {
		if !obj.Deleted() {
			t.Errorf("%s not deleted", obj.Kind())
		}
	}

	// Deleting again must not fault
	screen.Delete()
}

func TestDeleteDetachesFromParent(t *testing.T) {
	screen := NewScreen(100, 100)
	a := NewContainer(screen)
	b := NewContainer(screen)

	a.Delete()

	if screen.ChildCount() != 1 {
		t.Fatalf("ChildCount = %d, want 1", screen.ChildCount())
	}
	if b.Deleted() {
		t.Error("sibling was deleted")
	}
}

func TestChartShiftMode(t *testing.T) {
	screen := NewScreen(100, 100)
	chart := NewChart(screen, 3)

	chart.PushValue(1)
	chart.PushValue(2)
	chart.PushValue(3)
	chart.PushValue(4)

	got := chart.Points()
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("points = %v, want %v", got, want)
		}
	}
}

func TestChartRepeatLast(t *testing.T) {
	screen := NewScreen(100, 100)
	chart := NewChart(screen, 4)

	chart.PushValue(7)
	chart.RepeatLast()

	got := chart.Points()
	if got[2] != 7 || got[3] != 7 {
		t.Errorf("points = %v, want trailing 7s", got)
	}
}

func TestSnapshotSerializes(t *testing.T) {
	screen := NewScreen(64, 32)
	lbl := NewLabel(screen)
	lbl.SetText("Temp: ")
	chart := NewChart(screen, 2)
	chart.PushValue(42)

	data, err := json.Marshal(screen)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var n struct {
		Kind     string `json:"kind"`
		Children []struct {
			Kind  string `json:"kind"`
			Text  string `json:"text"`
			Chart *struct {
				Points []float64 `json:"points"`
			} `json:"chart"`
		} `json:"children"`
	}
	if err := json.Unmarshal(data, &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Kind != "screen" || len(n.Children) != 2 {
		t.Fatalf("unexpected tree: %s", data)
	}
	if n.Children[0].Text != "Temp: " {
		t.Errorf("label text = %q", n.Children[0].Text)
	}
	if n.Children[1].Chart == nil || n.Children[1].Chart.Points[1] != 42 {
		t.Errorf("chart missing from snapshot: %s", data)
	}
}

func TestTimerStops(t *testing.T) {
	var fired atomic.Int32
	timer := NewTimer(time.Millisecond, func() { fired.Add(1) })

	deadline := time.After(time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timer never fired")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	timer.Stop()
	after := fired.Load()
	time.Sleep(10 * time.Millisecond)
	if fired.Load() != after {
		t.Error("timer fired after Stop")
	}

	// Stop is idempotent
	timer.Stop()
}
