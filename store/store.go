package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/internal/keys"
	"github.com/jacentio/dyntable/validation"
)

// Backend is what the store needs from the host: change subscriptions and a
// way to re-fetch a record after it changed.
type Backend interface {
	Subscriber

	// Get returns host.ErrNotFound when the record was deleted.
	Get(ctx context.Context, id string) (host.Record, error)
}

// TableStore holds the rows, columns and entries of one table.
// It is safe for concurrent use.
type TableStore struct {
	backend Backend
	opts    Options
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup

	mu             sync.Mutex
	loading        bool
	waitingForAxis bool
	contextRec     host.Record
	columns        []*Column
	rows           []*Row
	entries        []*Entry
	width          int
	height         int
	messages       []validation.Message

	// queue holds hook calls to run once mu is released.
	queue []func()
}

// New creates a TableStore with no context bound.
func New(backend Backend, opts Options) *TableStore {
	opts.validate()
	ctx, cancel := context.WithCancel(context.Background())
	return &TableStore{
		backend:  backend,
		opts:     opts,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		messages: append([]validation.Message(nil), opts.ValidationMessages...),
	}
}

// unlock releases mu after arming pending hooks, then runs them.
func (s *TableStore) unlock() {
	s.checkAxisLocked()
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
}

func (s *TableStore) env() env {
	return env{
		ctx:     s.ctx,
		subs:    s.backend,
		pending: &s.pending,
		logger:  s.logger,
	}
}

// --- Context & lifecycle ---

// SetContext binds the context record and resets the table.
func (s *TableStore) SetContext(rec host.Record) {
	s.mu.Lock()
	defer s.unlock()
	s.contextRec = rec
	s.resetLocked()
}

// Context returns the bound context record, or nil.
func (s *TableStore) Context() host.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextRec
}

// ResetTable empties all three collections and releases their
// subscriptions. With an entries loader configured, the store requests the
// entries once both axes are populated again.
func (s *TableStore) ResetTable() {
	s.mu.Lock()
	defer s.unlock()
	s.resetLocked()
}

func (s *TableStore) resetLocked() {
	clearAll(s.columns)
	clearAll(s.rows)
	clearAll(s.entries)
	s.columns = nil
	s.rows = nil
	s.entries = nil

	if s.opts.EntriesLoader != nil && !s.waitingForAxis {
		s.waitingForAxis = true
	}
}

// checkAxisLocked fires the one-shot entries request armed by a reset.
func (s *TableStore) checkAxisLocked() {
	if !s.waitingForAxis || len(s.columns) == 0 || len(s.rows) == 0 {
		return
	}
	s.waitingForAxis = false
	if s.disabledLocked() {
		s.logger.Debug("skipping entries load, store is disabled")
		return
	}
	ids := s.tableIDsLocked()
	loader := s.opts.EntriesLoader
	s.queue = append(s.queue, func() { loader(ids, true) })
}

// WaitingForAxis reports whether an entries request is armed.
func (s *TableStore) WaitingForAxis() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingForAxis
}

// Settle blocks until every pending asynchronous title has settled.
func (s *TableStore) Settle() {
	s.pending.Wait()
}

// Close releases every subscription and waits for pending titles.
func (s *TableStore) Close() {
	s.cancel()
	s.mu.Lock()
	clearAll(s.columns)
	clearAll(s.rows)
	clearAll(s.entries)
	s.columns = nil
	s.rows = nil
	s.entries = nil
	s.waitingForAxis = false
	s.mu.Unlock()
	s.pending.Wait()
}

// SetLoading sets the loading flag.
func (s *TableStore) SetLoading(state bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = state
}

// Loading reports the loading flag.
func (s *TableStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// --- Columns ---

// SetColumns ingests column records, replacing the collection when clean.
func (s *TableStore) SetColumns(recs []host.Record, clean bool, get GetMethods) {
	s.mu.Lock()
	defer s.unlock()

	incoming := make([]*Column, 0, len(recs))
	for _, rec := range recs {
		incoming = append(incoming, s.newColumnLocked(rec, get))
	}
	if clean {
		clearAll(s.columns)
		s.columns = nil
	}
	s.columns = merge(s.columns, incoming, nil)
}

// SetColumn reconciles one column record into the collection.
func (s *TableStore) SetColumn(rec host.Record, get GetMethods) {
	s.SetColumns([]host.Record{rec}, false, get)
}

// RemoveColumn removes a column and the entries in it.
func (s *TableStore) RemoveColumn(id string) {
	s.mu.Lock()
	defer s.unlock()

	i := indexOf(s.columns, id)
	if i == -1 {
		return
	}
	s.columns[i].ClearSubscriptions()
	s.columns = without(s.columns, i)
	s.removeEntriesForAxisLocked("", id)
}

func (s *TableStore) newColumnLocked(rec host.Record, get GetMethods) *Column {
	return newColumn(s.env(), rec, s.columnHandler(get), get)
}

func (s *TableStore) columnHandler(get GetMethods) ChangeFunc {
	return func(id string, done func(removed bool)) {
		rec, ok := s.refetch(id)
		if !ok {
			return
		}
		if rec == nil {
			s.RemoveColumn(id)
			done(true)
			return
		}

		s.mu.Lock()
		if indexOf(s.columns, rec.ID()) == -1 {
			s.unlock()
			return
		}
		s.columns = merge(s.columns, []*Column{s.newColumnLocked(rec, get)}, nil)
		if s.opts.ReloadOnColumnChange {
			s.reloadLocked(TableIDs{Rows: s.rowIDsLocked(), Columns: []string{rec.ID()}})
		}
		s.unlock()
		done(false)
	}
}

// Column returns the column with the given ID.
func (s *TableStore) Column(id string) (*Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.columns, id); i != -1 {
		return s.columns[i], true
	}
	return nil, false
}

// --- Rows ---

// SetRows ingests row records. A merged row keeps its selection flag.
func (s *TableStore) SetRows(recs []host.Record, ropts RowOptions, clean bool, get GetMethods) {
	s.mu.Lock()
	defer s.unlock()
	s.setRowsLocked(recs, ropts, clean, get)
}

// SetRow reconciles one row record into the collection.
func (s *TableStore) SetRow(rec host.Record, ropts RowOptions, get GetMethods) {
	s.SetRows([]host.Record{rec}, ropts, false, get)
}

func (s *TableStore) setRowsLocked(recs []host.Record, ropts RowOptions, clean bool, get GetMethods) {
	incoming := make([]*Row, 0, len(recs))
	for _, rec := range recs {
		incoming = append(incoming, newRow(s.env(), rec, ropts, s.rowHandler(ropts, get), get))
	}
	if clean {
		clearAll(s.rows)
		s.rows = nil
	}
	s.rows = merge(s.rows, incoming, func(prev, next *Row) {
		if prev.Selected() {
			next.setSelected(true)
		}
	})
}

// RemoveRow removes a row and its entries. Removing a selected row fires
// the selection hook.
func (s *TableStore) RemoveRow(id string) {
	s.mu.Lock()
	defer s.unlock()

	i := indexOf(s.rows, id)
	if i == -1 {
		return
	}
	row := s.rows[i]
	row.ClearSubscriptions()
	s.rows = without(s.rows, i)
	s.removeEntriesForAxisLocked(id, "")
	if row.Selected() {
		s.selectionChangedLocked()
	}
}

func (s *TableStore) rowHandler(ropts RowOptions, get GetMethods) ChangeFunc {
	return func(id string, done func(removed bool)) {
		rec, ok := s.refetch(id)
		if !ok {
			return
		}
		if rec == nil {
			s.RemoveRow(id)
			done(true)
			return
		}

		s.mu.Lock()
		if indexOf(s.rows, rec.ID()) == -1 {
			s.unlock()
			return
		}
		s.setRowsLocked([]host.Record{rec}, ropts, false, get)
		if s.opts.ReloadOnRowChange {
			s.reloadLocked(TableIDs{Rows: []string{rec.ID()}, Columns: s.columnIDsLocked()})
		}
		s.unlock()
		done(false)
	}
}

// Row returns the row with the given ID.
func (s *TableStore) Row(id string) (*Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.rows, id); i != -1 {
		return s.rows[i], true
	}
	return nil, false
}

// HasChildRows reports whether any row is nested under parent.
func (s *TableStore) HasChildRows(parent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Parent() == parent && r.ID() != parent {
			return true
		}
	}
	return false
}

// --- Entries ---

// SetEntries ingests entry records, resolving their row and column through
// refs.
func (s *TableStore) SetEntries(recs []host.Record, refs EntryRefs, clean bool, get GetMethods) {
	s.mu.Lock()
	defer s.unlock()

	incoming := make([]*Entry, 0, len(recs))
	for _, rec := range recs {
		incoming = append(incoming, newEntry(s.env(), rec, refs, s.entryHandler(refs, get), get))
	}
	if clean {
		clearAll(s.entries)
		s.entries = nil
	}
	s.entries = merge(s.entries, incoming, nil)
}

// SetEntry reconciles one entry record into the collection.
func (s *TableStore) SetEntry(rec host.Record, refs EntryRefs, get GetMethods) {
	s.SetEntries([]host.Record{rec}, refs, false, get)
}

// RemoveEntry removes one entry.
func (s *TableStore) RemoveEntry(id string) {
	s.mu.Lock()
	defer s.unlock()
	s.removeEntryLocked(id)
}

// RemoveEntriesForAxis removes the entries of a row, or when rowID is "",
// the entries of a column.
func (s *TableStore) RemoveEntriesForAxis(rowID, colID string) {
	s.mu.Lock()
	defer s.unlock()
	s.removeEntriesForAxisLocked(rowID, colID)
}

func (s *TableStore) removeEntryLocked(id string) {
	i := indexOf(s.entries, id)
	if i == -1 {
		return
	}
	s.entries[i].ClearSubscriptions()
	s.entries = without(s.entries, i)
}

func (s *TableStore) removeEntriesForAxisLocked(rowID, colID string) {
	var ids []string
	for _, e := range s.entries {
		switch {
		case rowID != "":
			if e.Row() == rowID {
				ids = append(ids, e.ID())
			}
		case colID != "":
			if e.Column() == colID {
				ids = append(ids, e.ID())
			}
		}
	}
	for _, id := range ids {
		s.removeEntryLocked(id)
	}
}

func (s *TableStore) entryHandler(refs EntryRefs, get GetMethods) ChangeFunc {
	return func(id string, done func(removed bool)) {
		rec, ok := s.refetch(id)
		if !ok {
			return
		}
		if rec == nil {
			s.RemoveEntry(id)
			done(true)
			return
		}
		s.SetEntry(rec, refs, get)
		done(false)
	}
}

// Entry returns the entry with the given ID.
func (s *TableStore) Entry(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.entries, id); i != -1 {
		return s.entries[i], true
	}
	return nil, false
}

// --- Selection ---

// SetSelected makes ids the selection and fires the selection hook once,
// even when nothing changed. Unknown IDs are ignored.
func (s *TableStore) SetSelected(ids []string) {
	s.mu.Lock()
	defer s.unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, r := range s.rows {
		switch selected := r.Selected(); {
		case selected && !want[r.ID()]:
			r.setSelected(false)
		case !selected && want[r.ID()]:
			r.setSelected(true)
		}
	}
	s.selectionChangedLocked()
}

func (s *TableStore) selectionChangedLocked() {
	hook := s.opts.OnSelectionChange
	if hook == nil {
		return
	}
	ids := TableIDs{
		Context: s.contextIDLocked(),
		Rows:    s.selectedIDsLocked(),
	}
	s.queue = append(s.queue, func() { hook(ids) })
}

// SelectedRowIDs returns the IDs of selected rows in collection order.
func (s *TableStore) SelectedRowIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedIDsLocked()
}

// SelectedRows returns the selected rows in collection order.
func (s *TableStore) SelectedRows() []*Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []*Row
	for _, r := range s.rows {
		if r.Selected() {
			rows = append(rows, r)
		}
	}
	return rows
}

func (s *TableStore) selectedIDsLocked() []string {
	ids := []string{}
	for _, r := range s.rows {
		if r.ID() != "" && r.Selected() {
			ids = append(ids, r.ID())
		}
	}
	return ids
}

// --- Dimensions ---

// SetDimensions records the viewport size.
func (s *TableStore) SetDimensions(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
}

// SetWidth records the viewport width.
func (s *TableStore) SetWidth(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
}

// SetHeight records the viewport height.
func (s *TableStore) SetHeight(height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height = height
}

// Dimensions returns the viewport size.
func (s *TableStore) Dimensions() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// --- Validation ---

// AddValidationMessage appends a message.
func (s *TableStore) AddValidationMessage(m validation.Message) {
	s.mu.Lock()
	defer s.unlock()
	s.messages = append(s.messages, m)
}

// RemoveValidationMessage removes the message with the given ID.
func (s *TableStore) RemoveValidationMessage(id string) {
	s.mu.Lock()
	defer s.unlock()
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			return
		}
	}
}

// ValidationMessages returns a copy of the message list.
func (s *TableStore) ValidationMessages() []validation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]validation.Message(nil), s.messages...)
}

// Disabled reports whether a fatal message is held or no context is bound.
func (s *TableStore) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabledLocked()
}

func (s *TableStore) disabledLocked() bool {
	return validation.HasFatal(s.messages) || s.contextRec == nil
}

// --- Identifiers ---

// HasRows reports whether any row is loaded.
func (s *TableStore) HasRows() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows) > 0
}

// HasColumns reports whether any column is loaded.
func (s *TableStore) HasColumns() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.columns) > 0
}

// RowIDs returns the row IDs in collection order.
func (s *TableStore) RowIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowIDsLocked()
}

// ColumnIDs returns the column IDs in collection order.
func (s *TableStore) ColumnIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columnIDsLocked()
}

// EntryIDs returns the entry IDs in collection order.
func (s *TableStore) EntryIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return idsOf(s.entries)
}

// Entries returns the entries in collection order.
func (s *TableStore) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Entry(nil), s.entries...)
}

// TableIDs returns the context, row and column IDs.
func (s *TableStore) TableIDs() TableIDs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableIDsLocked()
}

func (s *TableStore) rowIDsLocked() []string    { return idsOf(s.rows) }
func (s *TableStore) columnIDsLocked() []string { return idsOf(s.columns) }

func (s *TableStore) contextIDLocked() string {
	if s.contextRec == nil {
		return ""
	}
	return s.contextRec.ID()
}

func (s *TableStore) tableIDsLocked() TableIDs {
	return TableIDs{
		Context: s.contextIDLocked(),
		Rows:    s.rowIDsLocked(),
		Columns: s.columnIDsLocked(),
	}
}

// --- Projections ---

// TableColumns returns the column descriptors in projection order.
func (s *TableStore) TableColumns() []TableColumn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableColumnsLocked()
}

func (s *TableStore) tableColumnsLocked() []TableColumn {
	cols := make([]TableColumn, 0, len(s.columns))
	for _, c := range s.columns {
		cols = append(cols, TableColumn{
			Key:        c.Key(),
			ID:         c.ID(),
			Title:      c.Title(),
			TitleEmpty: c.TitleEmpty(),
			SortKey:    c.SortKey(),
			ClassName:  c.ClassName(),
		})
	}
	return sortByKey(cols, s.opts.SortColumns, func(c TableColumn) any { return c.SortKey })
}

// TableRows returns the row tree. Each row carries one cell per column;
// when several entries share a slot the last one in the collection wins.
func (s *TableStore) TableRows() []*TableRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols := s.tableColumnsLocked()
	byRow := make(map[string][]*Entry)
	for _, e := range s.entries {
		if e.Row() != "" && e.Column() != "" {
			byRow[e.Row()] = append(byRow[e.Row()], e)
		}
	}

	rows := make([]*TableRow, 0, len(s.rows))
	for _, r := range s.rows {
		tr := &TableRow{
			Key:        r.Key(),
			ID:         r.ID(),
			Title:      r.Title(),
			TitleEmpty: r.TitleEmpty(),
			ClassName:  r.ClassName(),
			SortKey:    r.SortKey(),
			Cells:      make(map[string]*Cell, len(cols)),
			Expandable: r.Expandable(),
			References: r.References(),
			Parent:     r.Parent(),
		}
		if hc := r.HasChildren(); hc != nil {
			v := *hc
			tr.HasChildren = &v
		}
		for _, c := range cols {
			tr.Cells[c.Key] = nil
		}
		for _, e := range byRow[r.ID()] {
			tr.Cells[keys.Column(e.Column())] = &Cell{
				EntryID:    e.ID(),
				Title:      e.Title(),
				TitleEmpty: e.TitleEmpty(),
				ClassName:  e.ClassName(),
			}
		}
		if tr.Expandable {
			tr.Children = []*TableRow{}
		}
		rows = append(rows, tr)
	}

	rows = sortByKey(rows, s.opts.SortRows, func(r *TableRow) any { return r.SortKey })
	return BuildTree(rows)
}

// --- Reloads ---

// reloadLocked asks for the entries of a single row or column. It does
// nothing unless both axes are loaded, a context is bound and the store is
// enabled.
func (s *TableStore) reloadLocked(ids TableIDs) {
	loader := s.opts.EntriesLoader
	if loader == nil || len(s.columns) == 0 || len(s.rows) == 0 || s.disabledLocked() {
		return
	}
	ids.Context = s.contextIDLocked()
	s.queue = append(s.queue, func() { loader(ids, false) })
}

// refetch loads a changed record. It returns (nil, true) when the record was
// deleted and (nil, false) when the fetch failed.
func (s *TableStore) refetch(id string) (host.Record, bool) {
	rec, err := s.backend.Get(s.ctx, id)
	if errors.Is(err, host.ErrNotFound) {
		return nil, true
	}
	if err != nil {
		s.logger.Warn("failed to refetch changed record",
			"id", id,
			"error", err,
		)
		return nil, false
	}
	return rec, true
}

// --- Collection helpers ---

type tracked interface {
	ID() string
	ClearSubscriptions()
}

// merge reconciles incoming objects into a copy of current by ID. A
// replaced object is disposed and carry runs with the old and new object.
func merge[T tracked](current, incoming []T, carry func(prev, next T)) []T {
	out := append([]T(nil), current...)
	index := make(map[string]int, len(out)+len(incoming))
	for i, o := range out {
		if o.ID() != "" {
			index[o.ID()] = i
		}
	}
	for _, next := range incoming {
		id := next.ID()
		if i, ok := index[id]; ok {
			prev := out[i]
			prev.ClearSubscriptions()
			if carry != nil {
				carry(prev, next)
			}
			out[i] = next
			continue
		}
		if id != "" {
			index[id] = len(out)
		}
		out = append(out, next)
	}
	return out
}

func clearAll[T tracked](items []T) {
	for _, it := range items {
		it.ClearSubscriptions()
	}
}

func indexOf[T tracked](items []T, id string) int {
	for i, it := range items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

func without[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func idsOf[T tracked](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.ID() != "" {
			out = append(out, it.ID())
		}
	}
	return out
}
