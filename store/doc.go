// Package store provides a reactive row/column/entry table state with
// tree-structured rows.
//
// A [TableStore] owns three collections that are fed with batches of host
// records. Each record is wrapped in an [Object] that subscribes to the
// record's change notifications and keeps derived display fields (title,
// class, sort key) current. The store reconciles incoming batches in place,
// cascades removals, and derives the projections a renderer consumes.
//
// # Ingestion
//
// Every Set method takes a clean flag:
//
//   - clean=true replaces the collection wholesale after releasing the
//     subscriptions of the previous objects.
//   - clean=false merges by identifier: a known ID is replaced in place (rows
//     keep their selection), an unknown ID is appended, and objects missing
//     from the batch are left alone.
//
// # Change propagation
//
// A change notification re-fetches the record through the [Backend]. A
// missing record removes its object; a modified row or column asks the
// entries loader for the entries of just that row or column.
//
// # Projections
//
//   - [TableStore.TableColumns] returns column descriptors, optionally sorted.
//   - [TableStore.TableRows] returns the row tree with one cell per column,
//     keyed by the namespaced column key. A nil cell marks an empty slot.
//   - [TableStore.SelectedRowIDs] returns the selected row IDs.
//
// # Concurrency
//
// All mutation is serialized by the store. Hooks ([Options.EntriesLoader],
// [Options.OnSelectionChange]) run after the store lock is released so they
// may call back into the store. Asynchronous titles are dropped when they
// settle after their object was disposed.
package store
