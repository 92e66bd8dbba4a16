package widget

import (
	"context"
	"sync"
	"time"

	"github.com/jacentio/dyntable/config"
)

// DefaultDebounce is the window in which a second click turns a single
// click into a double click.
const DefaultDebounce = 250 * time.Millisecond

// Debouncer runs the last scheduled function once the delay passes without
// another call. At most one timer is outstanding.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer. A non-positive delay uses
// DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Do schedules fn, cancelling any function still waiting.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels the waiting function. It reports whether one was cancelled.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// Clicks turns raw click events into widget actions. Single clicks wait
// out the debounce window so that a following double click can cancel
// them.
type Clicks struct {
	w        *Widget
	debounce *Debouncer
}

// NewClicks creates a Clicks for w with the given debounce delay.
func NewClicks(w *Widget, delay time.Duration) *Clicks {
	return &Clicks{w: w, debounce: NewDebouncer(delay)}
}

// Click handles a single click on a cell.
func (c *Clicks) Click(id string, node NodeType) {
	c.debounce.Do(func() {
		c.run(func(ctx context.Context) error {
			return c.w.Click(ctx, id, node, config.ClickSingle)
		})
	})
}

// DoubleClick cancels a waiting single click and handles a double click.
func (c *Clicks) DoubleClick(id string, node NodeType) {
	c.debounce.Stop()
	c.run(func(ctx context.Context) error {
		return c.w.Click(ctx, id, node, config.ClickDouble)
	})
}

// RowClick toggles the row selection and runs the row's single-click event.
func (c *Clicks) RowClick(key string) {
	c.debounce.Do(func() {
		c.w.ToggleRow(key)
		c.run(func(ctx context.Context) error {
			return c.w.Click(ctx, key, NodeRow, config.ClickSingle)
		})
	})
}

// RowDoubleClick cancels a waiting row click and runs the double-click event.
func (c *Clicks) RowDoubleClick(key string) {
	c.DoubleClick(key, NodeRow)
}

// EmptyClick handles a click on an empty slot.
func (c *Clicks) EmptyClick(clickType config.ClickType, colKey, rowID string) {
	fn := func() {
		c.run(func(ctx context.Context) error {
			return c.w.ClickEmpty(ctx, clickType, colKey, rowID)
		})
	}
	if clickType == config.ClickDouble {
		c.debounce.Stop()
		fn()
		return
	}
	c.debounce.Do(fn)
}

// Stop drops any waiting click.
func (c *Clicks) Stop() {
	c.debounce.Stop()
}

func (c *Clicks) run(fn func(ctx context.Context) error) {
	if err := fn(c.w.ctx); err != nil {
		c.w.logger.Warn("click action failed", "error", err)
	}
}
