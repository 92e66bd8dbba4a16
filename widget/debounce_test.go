package widget_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jacentio/dyntable/config"
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/widget"
)

func TestDebouncer_LastCallWins(t *testing.T) {
	d := widget.NewDebouncer(20 * time.Millisecond)

	var first, second atomic.Int32
	done := make(chan struct{})
	d.Do(func() { first.Add(1) })
	d.Do(func() {
		second.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}
	time.Sleep(40 * time.Millisecond)

	if first.Load() != 0 {
		t.Errorf("expected first call to be dropped, ran %d times", first.Load())
	}
	if second.Load() != 1 {
		t.Errorf("expected second call once, ran %d times", second.Load())
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := widget.NewDebouncer(time.Hour)

	if d.Stop() {
		t.Error("expected Stop without a pending call to report false")
	}
	d.Do(func() { t.Error("stopped function ran") })
	if !d.Stop() {
		t.Error("expected Stop to cancel the pending call")
	}
	if d.Stop() {
		t.Error("expected second Stop to report false")
	}
}

func TestClicks_DoubleClickCancelsSingle(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.Events.Column = config.EventConfig{
		Action:      config.ActionMicroflow,
		ClickFormat: config.ClickDouble,
		Microflow:   "Sales.OnQuarter",
	}
	cfg.Selection = config.SelectionConfig{
		Mode:              config.SelectSingle,
		ClickSelect:       true,
		OnChangeAction:    config.ActionMicroflow,
		OnChangeMicroflow: "Sales.OnSelect",
	}
	w := bind(t, f, cfg)

	clicks := widget.NewClicks(w, time.Hour)
	defer clicks.Stop()

	clicks.RowClick("r1")
	clicks.DoubleClick("col-q2", widget.NodeColumn)

	flows := f.calls.get("Sales.OnQuarter")
	if len(flows) != 1 || flows[0].ID() != "q2" {
		t.Errorf("expected one double-click flow for q2, got %v", flows)
	}
	if got := w.Store().SelectedRowIDs(); len(got) != 0 {
		t.Errorf("expected the pending row click to be cancelled, got %v", got)
	}
}

func TestClicks_RowClickSelects(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.Selection = config.SelectionConfig{
		Mode:              config.SelectSingle,
		ClickSelect:       true,
		OnChangeAction:    config.ActionMicroflow,
		OnChangeMicroflow: "Sales.OnSelect",
	}

	selected := make(chan []string, 1)
	f.host.RegisterFlow("Sales.OnSelect", func(_ context.Context, rec host.Record) (host.Result, error) {
		selected <- rec.References(helperRegion)
		return host.Result{}, nil
	})
	w := bind(t, f, cfg)

	clicks := widget.NewClicks(w, 10*time.Millisecond)
	defer clicks.Stop()
	clicks.RowClick("r2")

	select {
	case got := <-selected:
		if len(got) != 1 || got[0] != "r2" {
			t.Errorf("expected selection [r2], got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("row click never selected")
	}
}
