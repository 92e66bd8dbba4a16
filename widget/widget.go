package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jacentio/dyntable/config"
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/internal/keys"
	"github.com/jacentio/dyntable/store"
	"github.com/jacentio/dyntable/validation"
)

// Options holds configuration for a Widget.
type Options struct {
	// Logger receives fetch and action failures. Default: slog.Default()
	Logger *slog.Logger

	// Store overrides the store options. The entries loader and selection
	// hook are always installed by the widget.
	Store *store.Options
}

func (o *Options) validate() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// helperRefs names the references on the helper record.
type helperRefs struct {
	entity  string
	row     string
	column  string
	context string
}

// Widget binds a table configuration to a host.
type Widget struct {
	host   host.Host
	cfg    config.Config
	store  *store.TableStore
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	rowSource    axisSource
	columnSource axisSource
	entryAction  host.Action
	rowGet       store.GetMethods
	columnGet    store.GetMethods
	entryGet     store.GetMethods
	entryRefs    store.EntryRefs
	helper       helperRefs
	children     childMode
	selection    config.SelectionMode
}

// New resolves cfg against h and creates the widget's store. Fatal
// configuration problems disable the store; they are not returned.
func New(h host.Host, cfg config.Config, opts Options) *Widget {
	opts.validate()
	ctx, cancel := context.WithCancel(context.Background())

	w := &Widget{
		host:         h,
		cfg:          cfg,
		logger:       opts.Logger,
		ctx:          ctx,
		cancel:       cancel,
		rowSource:    resolveSource(cfg.Row),
		columnSource: resolveSource(cfg.Column),
		entryAction:  resolveEntrySource(cfg.Entry),
		rowGet:       axisMethods(h, cfg.Row),
		columnGet:    axisMethods(h, cfg.Column),
		entryGet:     entryMethods(h, cfg.Entry),
		entryRefs: store.EntryRefs{
			Row:    keys.Reference(cfg.Entry.RowReference),
			Column: keys.Reference(cfg.Entry.ColumnReference),
		},
		helper: helperRefs{
			entity:  cfg.Helper.Entity,
			row:     keys.Reference(cfg.Helper.RowReference),
			column:  keys.Reference(cfg.Helper.ColumnReference),
			context: keys.Reference(cfg.Helper.ContextReference),
		},
		children:  resolveChildren(cfg.Children),
		selection: selectionMode(cfg.Selection),
	}

	msgs := validation.Validate(cfg, validation.Extra{
		NoPersistentHelper: cfg.Helper.Entity != "" && h.IsPersistable(cfg.Helper.Entity),
	})
	for _, m := range msgs {
		if m.Fatal {
			w.logger.Error("invalid configuration", "message", m.String())
		} else {
			w.logger.Warn("configuration warning", "message", m.String())
		}
	}

	sopts := store.DefaultOptions()
	if opts.Store != nil {
		sopts = *opts.Store
	}
	sopts.EntriesLoader = w.loadEntries
	sopts.OnSelectionChange = w.selectionChanged
	sopts.ValidationMessages = append(sopts.ValidationMessages, msgs...)
	sopts.SortRows = sortType(cfg.Row)
	sopts.SortColumns = sortType(cfg.Column)
	if sopts.Logger == nil {
		sopts.Logger = opts.Logger
	}
	w.store = store.New(h, sopts)
	return w
}

// Store returns the underlying table store.
func (w *Widget) Store() *store.TableStore { return w.store }

// Config returns the configuration the widget was built from.
func (w *Widget) Config() config.Config { return w.cfg }

// SelectionMode returns the effective selection mode. Selection is turned
// off when it has no visible effect and no change action.
func (w *Widget) SelectionMode() config.SelectionMode { return w.selection }

// Close cancels pending work and releases every subscription.
func (w *Widget) Close() {
	w.cancel()
	w.store.Close()
}

// --- Loading ---

// SetContext binds rec, clears the table and fetches rows and columns. The
// entries follow once both axes are in. A nil rec only clears the table.
// Fetch failures leave the axis empty and are returned joined.
func (w *Widget) SetContext(ctx context.Context, rec host.Record) error {
	w.store.SetContext(rec)
	if rec == nil {
		return nil
	}
	if w.store.Disabled() {
		w.logger.Debug("skipping axis fetch, widget is disabled")
		return nil
	}

	w.store.SetLoading(true)
	defer w.store.SetLoading(false)

	rows, rowErr := w.rowSource.fetch(ctx, w.host, rec)
	if rowErr != nil {
		w.logger.Warn("failed to fetch rows", "error", rowErr)
		rowErr = fmt.Errorf("fetch rows: %w", rowErr)
	}
	w.store.SetRows(rows, w.children.rowOptions(""), true, w.rowGet)

	cols, colErr := w.columnSource.fetch(ctx, w.host, rec)
	if colErr != nil {
		w.logger.Warn("failed to fetch columns", "error", colErr)
		colErr = fmt.Errorf("fetch columns: %w", colErr)
	}
	w.store.SetColumns(cols, true, w.columnGet)

	return errors.Join(rowErr, colErr)
}

// loadEntries is the store's entries loader.
func (w *Widget) loadEntries(ids store.TableIDs, clean bool) {
	recs, err := w.fetchEntries(w.ctx, ids.Rows, ids.Columns)
	if err != nil {
		w.logger.Warn("failed to load entries",
			"rows", len(ids.Rows),
			"columns", len(ids.Columns),
			"error", err,
		)
		return
	}
	w.store.SetEntries(recs, w.entryRefs, clean, w.entryGet)
}

// fetchEntries runs the entries flow with a helper referencing rowIDs,
// columnIDs and the context.
func (w *Widget) fetchEntries(ctx context.Context, rowIDs, columnIDs []string) ([]host.Record, error) {
	if w.store.Context() == nil || len(rowIDs) == 0 || len(columnIDs) == 0 || w.entryAction.Empty() {
		return nil, nil
	}
	helper, err := w.createHelper(ctx, rowIDs, columnIDs)
	if err != nil {
		return nil, err
	}
	res, err := w.host.ExecuteAction(ctx, w.entryAction, helper)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", w.entryAction, err)
	}
	return res.Records, nil
}

// createHelper commits a transient helper record referencing rowIDs,
// columnIDs and the bound context.
func (w *Widget) createHelper(ctx context.Context, rowIDs, columnIDs []string) (host.Record, error) {
	if w.helper.entity == "" || w.helper.row == "" || w.helper.column == "" {
		return nil, ErrMissingHelper
	}
	rec, err := w.host.Create(ctx, w.helper.entity)
	if err != nil {
		return nil, fmt.Errorf("create helper: %w", err)
	}
	rec.AddReferences(w.helper.row, rowIDs)
	rec.AddReferences(w.helper.column, columnIDs)
	if contextRec := w.store.Context(); w.helper.context != "" && contextRec != nil {
		rec.AddReference(w.helper.context, contextRec.ID())
	}
	if err := w.host.Commit(ctx, rec); err != nil {
		return nil, fmt.Errorf("commit helper: %w", err)
	}
	return rec, nil
}

// Expand loads the children of a row and their entries. Rows that already
// have their action-loaded children are left alone.
func (w *Widget) Expand(ctx context.Context, rowKey string) error {
	if w.store.Context() == nil {
		return store.ErrNoContext
	}
	row, ok := w.store.Row(rowKey)
	if !ok {
		return store.ErrRowNotFound
	}

	var children []host.Record
	switch refs := row.References(); {
	case len(refs) > 0:
		recs, err := w.host.GetMany(ctx, refs)
		if err != nil {
			return fmt.Errorf("fetch children of %s: %w", rowKey, err)
		}
		children = recs
	case w.cfg.Children.Scenario == config.ChildAction && row.Expandable():
		if w.store.HasChildRows(rowKey) {
			return nil
		}
		if w.children.action.Empty() {
			return nil
		}
		rec, err := w.host.Get(ctx, rowKey)
		if err != nil {
			return fmt.Errorf("fetch row %s: %w", rowKey, err)
		}
		res, err := w.host.ExecuteAction(ctx, w.children.action, rec)
		if err != nil {
			return fmt.Errorf("run %s: %w", w.children.action, err)
		}
		children = res.Records
	default:
		return ErrNotExpandable
	}

	w.store.SetLoading(true)
	defer w.store.SetLoading(false)

	w.store.SetRows(children, w.children.rowOptions(rowKey), false, w.rowGet)

	entries, err := w.fetchEntries(ctx, host.IDs(children), w.store.ColumnIDs())
	if err != nil {
		return fmt.Errorf("load child entries: %w", err)
	}
	w.store.SetEntries(entries, w.entryRefs, false, w.entryGet)
	return nil
}

// --- Actions ---

// Click runs the configured event for the row, column or entry id. Column
// IDs may be given as column keys. Clicks that match no complete action
// are ignored.
func (w *Widget) Click(ctx context.Context, id string, node NodeType, clickType config.ClickType) error {
	var (
		rec    host.Record
		event  config.EventConfig
		entity string
	)
	switch node {
	case NodeRow:
		if r, ok := w.store.Row(id); ok {
			rec = r.Record()
		}
		event, entity = w.cfg.Events.Row, w.cfg.Row.Entity
	case NodeColumn:
		if keys.IsColumn(id) {
			id = keys.ColumnID(id)
		}
		if c, ok := w.store.Column(id); ok {
			rec = c.Record()
		}
		event, entity = w.cfg.Events.Column, w.cfg.Column.Entity
	case NodeEntry:
		if e, ok := w.store.Entry(id); ok {
			rec = e.Record()
		}
		event, entity = w.cfg.Events.Entry, w.cfg.Entry.Entity
	default:
		return fmt.Errorf("dyntable: unknown node type %q", node)
	}

	if rec == nil || (entity != "" && rec.Entity() != entity) {
		return nil
	}
	action := eventAction(event, clickType)
	if action.Empty() {
		return nil
	}
	if _, err := w.host.ExecuteAction(ctx, action, rec); err != nil {
		return fmt.Errorf("run %s: %w", action, err)
	}
	return nil
}

// ClickEmpty runs the empty-cell event for the slot at colKey and rowID.
// Only flows are allowed; the flow receives a helper referencing the slot.
func (w *Widget) ClickEmpty(ctx context.Context, clickType config.ClickType, colKey, rowID string) error {
	ev := w.cfg.Events.Empty
	if ev.ClickFormat != clickType || ev.Action == config.ActionNothing {
		return nil
	}
	colID := keys.ColumnID(colKey)
	if colID == "" || rowID == "" {
		return nil
	}
	action := flowAction(ev.Action, ev.Microflow, ev.Nanoflow)
	if action.Empty() {
		return nil
	}
	helper, err := w.createHelper(ctx, []string{rowID}, []string{colID})
	if err != nil {
		return err
	}
	if _, err := w.host.ExecuteAction(ctx, action, helper); err != nil {
		return fmt.Errorf("run %s: %w", action, err)
	}
	return nil
}

// --- Selection ---

// ToggleRow flips the selection of a row when click-to-select is on. In
// single mode a newly selected row replaces the selection.
func (w *Widget) ToggleRow(key string) {
	if !w.cfg.Selection.ClickSelect || w.selection == config.SelectNone {
		return
	}
	if _, ok := w.store.Row(key); !ok {
		return
	}
	selected := w.store.SelectedRowIDs()
	i := slices.Index(selected, key)
	switch {
	case i != -1 && w.selection == config.SelectSingle:
		w.store.SetSelected(nil)
	case i != -1:
		w.store.SetSelected(slices.Delete(selected, i, i+1))
	case w.selection == config.SelectSingle:
		w.store.SetSelected([]string{key})
	default:
		w.store.SetSelected(append(selected, key))
	}
}

// CheckRows makes ids the selection in multi mode.
func (w *Widget) CheckRows(ids []string) {
	if w.selection != config.SelectMulti {
		return
	}
	w.store.SetSelected(ids)
}

// CheckRow selects or clears a single row in single mode.
func (w *Widget) CheckRow(key string, checked bool) {
	if w.selection != config.SelectSingle {
		return
	}
	if checked {
		w.store.SetSelected([]string{key})
		return
	}
	w.store.SetSelected(nil)
}

// selectionChanged is the store's selection hook.
func (w *Widget) selectionChanged(ids store.TableIDs) {
	s := w.cfg.Selection
	if s.OnChangeAction == config.ActionNothing {
		return
	}
	action := flowAction(s.OnChangeAction, s.OnChangeMicroflow, s.OnChangeNanoflow)
	if action.Empty() {
		return
	}
	helper, err := w.createHelper(w.ctx, ids.Rows, nil)
	if err != nil {
		w.logger.Warn("selection action skipped", "error", err)
		return
	}
	if _, err := w.host.ExecuteAction(w.ctx, action, helper); err != nil {
		w.logger.Warn("selection action failed",
			"action", action.String(),
			"error", err,
		)
	}
}
