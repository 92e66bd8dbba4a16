package widget

import (
	"context"
	"fmt"

	"github.com/jacentio/dyntable/config"
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/internal/keys"
	"github.com/jacentio/dyntable/store"
)

// NodeType names the kind of cell a click landed on.
type NodeType string

const (
	NodeRow    NodeType = "row"
	NodeColumn NodeType = "column"
	NodeEntry  NodeType = "entry"
)

// fetchKind is how an axis gets its records.
type fetchKind int

const (
	fetchNone fetchKind = iota
	fetchQuery
	fetchFlow
)

// axisSource is the resolved data source of one axis.
type axisSource struct {
	kind       fetchKind
	entity     string
	constraint string
	action     host.Action
}

func resolveSource(a config.AxisConfig) axisSource {
	switch a.DataSource {
	case config.DataSourceXPath:
		if a.Entity != "" {
			return axisSource{kind: fetchQuery, entity: a.Entity, constraint: a.Constraint}
		}
	case config.DataSourceMicroflow:
		if a.Microflow != "" {
			return axisSource{kind: fetchFlow, action: host.Action{Microflow: a.Microflow}}
		}
	case config.DataSourceNanoflow:
		if a.Nanoflow != "" {
			return axisSource{kind: fetchFlow, action: host.Action{Nanoflow: a.Nanoflow}}
		}
	}
	return axisSource{kind: fetchNone}
}

// fetch runs the source against the context record. A source without a
// usable configuration returns no records.
func (src axisSource) fetch(ctx context.Context, h host.Host, contextRec host.Record) ([]host.Record, error) {
	if contextRec == nil {
		return nil, nil
	}
	switch src.kind {
	case fetchQuery:
		return h.Query(ctx, src.entity, src.constraint, contextRec)
	case fetchFlow:
		res, err := h.ExecuteAction(ctx, src.action, contextRec)
		if err != nil {
			return nil, err
		}
		return res.Records, nil
	}
	return nil, nil
}

// resolveEntrySource resolves the entries flow. Entries have no query source.
func resolveEntrySource(e config.EntryConfig) host.Action {
	switch {
	case e.DataSource == config.DataSourceMicroflow && e.Microflow != "":
		return host.Action{Microflow: e.Microflow}
	case e.DataSource == config.DataSourceNanoflow && e.Nanoflow != "":
		return host.Action{Nanoflow: e.Nanoflow}
	}
	return host.Action{}
}

// titleMethods builds the title derivation. An attribute title is static;
// anything else is resolved through the host and may be empty.
func titleMethods(h host.Host, titleType config.TitleType, attr, nanoflow string) store.GetMethods {
	if titleType == config.TitleAttribute && attr != "" {
		return store.GetMethods{
			StaticTitle: func(rec host.Record) string { return attrString(rec, attr) },
		}
	}
	return store.GetMethods{
		Title: func(ctx context.Context, rec host.Record) (string, error) {
			if titleType != config.TitleNanoflow || nanoflow == "" || rec == nil {
				return "", nil
			}
			res, err := h.ExecuteAction(ctx, host.Action{Nanoflow: nanoflow}, rec)
			if err != nil {
				return "", err
			}
			return res.Text(), nil
		},
	}
}

func classMethod(attr string) store.ClassFunc {
	return func(rec host.Record) string {
		if rec == nil || attr == "" {
			return ""
		}
		return attrString(rec, attr)
	}
}

func sortMethod(attr string) store.SortFunc {
	return func(rec host.Record) any {
		if rec == nil || attr == "" {
			return nil
		}
		return rec.Get(attr)
	}
}

func attrString(rec host.Record, attr string) string {
	switch v := rec.Get(attr).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func axisMethods(h host.Host, a config.AxisConfig) store.GetMethods {
	get := titleMethods(h, a.TitleType, a.TitleAttr, a.TitleNanoflow)
	get.Class = classMethod(a.ClassAttr)
	get.Sort = sortMethod(a.SortingAttribute)
	return get
}

func entryMethods(h host.Host, e config.EntryConfig) store.GetMethods {
	get := titleMethods(h, e.TitleType, e.TitleAttr, e.TitleNanoflow)
	get.Class = classMethod(e.ClassAttr)
	return get
}

func sortType(a config.AxisConfig) store.SortType {
	if a.SortingAttribute == "" {
		return store.SortNone
	}
	if a.SortingOrder == config.SortDesc {
		return store.SortDesc
	}
	return store.SortAsc
}

// childMode is the resolved child scenario.
type childMode struct {
	reference    string
	hasChildAttr string
	action       host.Action
}

func resolveChildren(c config.ChildConfig) childMode {
	var m childMode
	if c.Scenario == config.ChildReference && c.Reference != "" {
		m.reference = keys.Reference(c.Reference)
	}
	if c.Scenario != config.ChildDisabled && c.Scenario != config.ChildReference &&
		c.Reference == "" && c.HasChildAttr != "" {
		m.hasChildAttr = c.HasChildAttr
	}
	if c.Scenario == config.ChildAction {
		switch {
		case c.ActionMethod == config.DataSourceMicroflow && c.ActionMicroflow != "":
			m.action = host.Action{Microflow: c.ActionMicroflow}
		case c.ActionMethod == config.DataSourceNanoflow && c.ActionNanoflow != "":
			m.action = host.Action{Nanoflow: c.ActionNanoflow}
		}
	}
	return m
}

func (m childMode) rowOptions(parent string) store.RowOptions {
	return store.RowOptions{
		ChildRef:     m.reference,
		HasChildAttr: m.hasChildAttr,
		Parent:       parent,
	}
}

// selectionMode turns selection off when selecting would do nothing.
func selectionMode(s config.SelectionConfig) config.SelectionMode {
	if s.Mode != config.SelectNone &&
		!(s.ClickSelect && s.Mode == config.SelectSingle) &&
		s.OnChangeAction == config.ActionNothing {
		return config.SelectNone
	}
	return s.Mode
}

// eventAction resolves what a click of clickType does under ev. It returns
// an empty action when the event doesn't apply.
func eventAction(ev config.EventConfig, clickType config.ClickType) host.Action {
	if ev.ClickFormat != clickType {
		return host.Action{}
	}
	switch {
	case ev.Action == config.ActionOpenPage && ev.Page != "":
		openAs := host.OpenAs(ev.OpenPageAs)
		if openAs == "" {
			openAs = host.OpenContent
		}
		return host.Action{Page: &host.Page{Name: ev.Page, OpenAs: openAs}}
	case ev.Action == config.ActionMicroflow && ev.Microflow != "":
		return host.Action{Microflow: ev.Microflow}
	case ev.Action == config.ActionNanoflow && ev.Nanoflow != "":
		return host.Action{Nanoflow: ev.Nanoflow}
	}
	return host.Action{}
}

// flowAction resolves a microflow or nanoflow action. Pages aren't allowed.
func flowAction(kind config.ActionKind, microflow, nanoflow string) host.Action {
	switch {
	case kind == config.ActionMicroflow && microflow != "":
		return host.Action{Microflow: microflow}
	case kind == config.ActionNanoflow && nanoflow != "":
		return host.Action{Nanoflow: nanoflow}
	}
	return host.Action{}
}
