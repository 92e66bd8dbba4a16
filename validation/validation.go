// Package validation checks a table configuration for combinations that
// cannot work, such as a flow data source without a flow.
package validation

import (
	"github.com/google/uuid"

	"github.com/jacentio/dyntable/config"
)

// Severity tags a message as blocking or informational.
type Severity string

const (
	Fatal   Severity = "fatal"
	Warning Severity = "warning"
)

// Message is one validation finding.
type Message struct {
	ID          string
	Category    string
	Text        string
	Fatal       bool
	Dismissable bool
}

// NewMessage creates a message with a fresh ID.
func NewMessage(category, text string, severity Severity) Message {
	return Message{
		ID:          uuid.NewString(),
		Category:    category,
		Text:        text,
		Fatal:       severity == Fatal,
		Dismissable: severity != Fatal,
	}
}

// String renders the message as "Category :: text".
func (m Message) String() string {
	if m.Category == "" {
		return m.Text
	}
	return m.Category + " :: " + m.Text
}

// HasFatal reports whether any message is fatal.
func HasFatal(msgs []Message) bool {
	for _, m := range msgs {
		if m.Fatal {
			return true
		}
	}
	return false
}

// Extra carries facts about the host that the configuration alone can't
// tell.
type Extra struct {
	// NoPersistentHelper is set when the helper entity is persistable.
	NoPersistentHelper bool
}

const (
	actionMicroflow = "Action is set to Microflow, but microflow is not defined"
	actionNanoflow  = "Action is set to Nanoflow, but nanoflow is not defined"
	actionPage      = "Action is set to Open page, but page is not defined"
)

type rule struct {
	category string
	text     string
	severity Severity
	failed   func(c config.Config, x Extra) bool
}

var rules = []rule{
	{"Data Helper", "Entry Helper entity can only be a non-persistent entity", Fatal, func(_ config.Config, x Extra) bool {
		return x.NoPersistentHelper
	}},

	// Row
	{"Row", "Data Source Microflow not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Row.DataSource == config.DataSourceMicroflow && c.Row.Microflow == ""
	}},
	{"Row", "Data Source Nanoflow not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Row.DataSource == config.DataSourceNanoflow && c.Row.Nanoflow == ""
	}},
	{"Row", "Title attribute not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Row.TitleType == config.TitleAttribute && c.Row.TitleAttr == ""
	}},
	{"Row", "Title Nanoflow not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Row.TitleType == config.TitleNanoflow && c.Row.TitleNanoflow == ""
	}},

	// Row children
	{"Row Children", "Child reference not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Children.Scenario == config.ChildReference && c.Children.Reference == ""
	}},
	{"Row Children", "Has Child attr is not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Children.Scenario == config.ChildAction && c.Children.HasChildAttr == ""
	}},
	{"Row Children", "Scenario is Microflow, but no microflow is defined!", Fatal, func(c config.Config, _ Extra) bool {
		return c.Children.Scenario == config.ChildAction &&
			c.Children.ActionMethod == config.DataSourceMicroflow && c.Children.ActionMicroflow == ""
	}},
	{"Row Children", "Scenario is Nanoflow, but no nanoflow is defined!", Fatal, func(c config.Config, _ Extra) bool {
		return c.Children.Scenario == config.ChildAction &&
			c.Children.ActionMethod == config.DataSourceNanoflow && c.Children.ActionNanoflow == ""
	}},
	{"Row Children", "Has Child attr is ignored when children come from a reference", Warning, func(c config.Config, _ Extra) bool {
		return c.Children.Scenario == config.ChildReference && c.Children.HasChildAttr != ""
	}},

	// Column
	{"Column", "Data Source Microflow not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Column.DataSource == config.DataSourceMicroflow && c.Column.Microflow == ""
	}},
	{"Column", "Data Source Nanoflow not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Column.DataSource == config.DataSourceNanoflow && c.Column.Nanoflow == ""
	}},
	{"Column", "Title attribute not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Column.TitleType == config.TitleAttribute && c.Column.TitleAttr == ""
	}},
	{"Column", "Title Nanoflow not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Column.TitleType == config.TitleNanoflow && c.Column.TitleNanoflow == ""
	}},

	// Entries
	{"Entries", "Data Source is Microflow, but no microflow is defined!", Fatal, func(c config.Config, _ Extra) bool {
		return c.Entry.DataSource == config.DataSourceMicroflow && c.Entry.Microflow == ""
	}},
	{"Entries", "Data Source is Nanoflow, but no nanoflow is defined!", Fatal, func(c config.Config, _ Extra) bool {
		return c.Entry.DataSource == config.DataSourceNanoflow && c.Entry.Nanoflow == ""
	}},
	{"Entries", "Title attribute not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Entry.TitleType == config.TitleAttribute && c.Entry.TitleAttr == ""
	}},
	{"Entries", "Title Nanoflow not defined", Fatal, func(c config.Config, _ Extra) bool {
		return c.Entry.TitleType == config.TitleNanoflow && c.Entry.TitleNanoflow == ""
	}},

	// Selection
	{"Selection", actionMicroflow, Fatal, func(c config.Config, _ Extra) bool {
		return c.Selection.OnChangeAction == config.ActionMicroflow && c.Selection.OnChangeMicroflow == ""
	}},
	{"Selection", actionNanoflow, Fatal, func(c config.Config, _ Extra) bool {
		return c.Selection.OnChangeAction == config.ActionNanoflow && c.Selection.OnChangeNanoflow == ""
	}},
}

func init() {
	rules = append(rules, eventRules("Event: Row", func(c config.Config) config.EventConfig { return c.Events.Row }, true)...)
	rules = append(rules, eventRules("Event: Column", func(c config.Config) config.EventConfig { return c.Events.Column }, true)...)
	rules = append(rules, eventRules("Event: Entry", func(c config.Config) config.EventConfig { return c.Events.Entry }, true)...)
	rules = append(rules, eventRules("Event: Empty", func(c config.Config) config.EventConfig { return c.Events.Empty }, false)...)
}

func eventRules(category string, event func(config.Config) config.EventConfig, withPage bool) []rule {
	rs := []rule{
		{category, actionMicroflow, Fatal, func(c config.Config, _ Extra) bool {
			ev := event(c)
			return ev.Action == config.ActionMicroflow && ev.Microflow == ""
		}},
		{category, actionNanoflow, Fatal, func(c config.Config, _ Extra) bool {
			ev := event(c)
			return ev.Action == config.ActionNanoflow && ev.Nanoflow == ""
		}},
	}
	if withPage {
		rs = append(rs, rule{category, actionPage, Fatal, func(c config.Config, _ Extra) bool {
			ev := event(c)
			return ev.Action == config.ActionOpenPage && ev.Page == ""
		}})
	}
	return rs
}

// Validate runs every rule in declaration order and returns a message for
// each one that fails.
func Validate(c config.Config, x Extra) []Message {
	var msgs []Message
	for _, r := range rules {
		if r.failed(c, x) {
			msgs = append(msgs, NewMessage(r.category, r.text, r.severity))
		}
	}
	return msgs
}
