// Package widget drives a store.TableStore from a config.Config.
//
// A Widget resolves the configuration once into per-axis strategies, then
// fetches rows and columns whenever a context record is bound, loads
// entries through a transient helper record, expands tree rows on demand,
// and turns clicks and selection changes into host actions. Incomplete
// actions are skipped without error.
package widget
