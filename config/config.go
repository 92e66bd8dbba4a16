// Package config describes how a dynamic table is wired to its host: where
// each axis gets its records, how titles and classes are derived, and what
// clicks and selection changes do.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DataSource selects how an axis fetches its records.
type DataSource string

const (
	DataSourceXPath     DataSource = "xpath"
	DataSourceMicroflow DataSource = "microflow"
	DataSourceNanoflow  DataSource = "nanoflow"
)

// TitleType selects how a title is derived.
type TitleType string

const (
	TitleAttribute TitleType = "attribute"
	TitleNanoflow  TitleType = "nanoflow"
)

// ChildScenario selects how rows expose children.
type ChildScenario string

const (
	ChildDisabled  ChildScenario = "disabled"
	ChildReference ChildScenario = "reference"
	ChildAction    ChildScenario = "action"
)

// SelectionMode selects how many rows can be selected.
type SelectionMode string

const (
	SelectNone   SelectionMode = "none"
	SelectSingle SelectionMode = "single"
	SelectMulti  SelectionMode = "multi"
)

// ClickType distinguishes single and double clicks.
type ClickType string

const (
	ClickSingle ClickType = "single"
	ClickDouble ClickType = "double"
)

// ActionKind selects what an event does.
type ActionKind string

const (
	ActionNothing   ActionKind = "nothing"
	ActionMicroflow ActionKind = "microflow"
	ActionNanoflow  ActionKind = "nanoflow"
	ActionOpenPage  ActionKind = "open"
)

// SortOrder orders an axis by its sorting attribute.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// AxisConfig configures rows or columns.
type AxisConfig struct {
	Entity           string     `yaml:"entity"`
	DataSource       DataSource `yaml:"dataSource"`
	Constraint       string     `yaml:"constraint"`
	Microflow        string     `yaml:"microflow"`
	Nanoflow         string     `yaml:"nanoflow"`
	SortingAttribute string     `yaml:"sortingAttribute"`
	SortingOrder     SortOrder  `yaml:"sortingOrder"`
	TitleType        TitleType  `yaml:"titleType"`
	TitleAttr        string     `yaml:"titleAttr"`
	TitleNanoflow    string     `yaml:"titleNanoflow"`
	RenderAsHTML     bool       `yaml:"renderAsHTML"`
	ClassAttr        string     `yaml:"classAttr"`
}

// ChildConfig configures tree-structured rows.
type ChildConfig struct {
	Scenario        ChildScenario `yaml:"scenario"`
	Reference       string        `yaml:"reference"`
	HasChildAttr    string        `yaml:"hasChildAttr"`
	ActionMethod    DataSource    `yaml:"actionMethod"`
	ActionMicroflow string        `yaml:"actionMicroflow"`
	ActionNanoflow  string        `yaml:"actionNanoflow"`
}

// EntryConfig configures the cells.
type EntryConfig struct {
	Entity          string     `yaml:"entity"`
	RowReference    string     `yaml:"rowReference"`
	ColumnReference string     `yaml:"columnReference"`
	DataSource      DataSource `yaml:"dataSource"`
	Microflow       string     `yaml:"microflow"`
	Nanoflow        string     `yaml:"nanoflow"`
	TitleType       TitleType  `yaml:"titleType"`
	TitleAttr       string     `yaml:"titleAttr"`
	TitleNanoflow   string     `yaml:"titleNanoflow"`
	RenderAsHTML    bool       `yaml:"renderAsHTML"`
	ClassAttr       string     `yaml:"classAttr"`
}

// HelperConfig configures the transient record passed to entry, selection
// and empty-cell flows.
type HelperConfig struct {
	Entity           string `yaml:"entity"`
	RowReference     string `yaml:"rowReference"`
	ColumnReference  string `yaml:"columnReference"`
	ContextReference string `yaml:"contextReference"`
}

// SelectionConfig configures row selection.
type SelectionConfig struct {
	Mode              SelectionMode `yaml:"mode"`
	ClickSelect       bool          `yaml:"clickSelect"`
	HideCheckboxes    bool          `yaml:"hideCheckboxes"`
	OnChangeAction    ActionKind    `yaml:"onChangeAction"`
	OnChangeMicroflow string        `yaml:"onChangeMicroflow"`
	OnChangeNanoflow  string        `yaml:"onChangeNanoflow"`
}

// EventConfig configures what a click on one kind of cell does.
type EventConfig struct {
	Action      ActionKind `yaml:"action"`
	ClickFormat ClickType  `yaml:"clickFormat"`
	Microflow   string     `yaml:"microflow"`
	Nanoflow    string     `yaml:"nanoflow"`
	Page        string     `yaml:"page"`
	OpenPageAs  string     `yaml:"openPageAs"`
}

// EventsConfig groups the click events.
type EventsConfig struct {
	Row    EventConfig `yaml:"row"`
	Column EventConfig `yaml:"column"`
	Entry  EventConfig `yaml:"entry"`
	Empty  EventConfig `yaml:"empty"`
}

// SettingsConfig holds layout parameters passed through to the renderer.
type SettingsConfig struct {
	LeftColumnWidth int    `yaml:"leftColumnWidth"`
	CellColumnWidth int    `yaml:"cellColumnWidth"`
	LockHeaderRow   bool   `yaml:"lockHeaderRow"`
	LockLeftColumn  bool   `yaml:"lockLeftColumn"`
	WidthUnit       string `yaml:"widthUnit"`
	Width           int    `yaml:"width"`
	HeightUnit      string `yaml:"heightUnit"`
	Height          int    `yaml:"height"`
}

// Config is the full declarative configuration of one table.
type Config struct {
	Row       AxisConfig      `yaml:"row"`
	Column    AxisConfig      `yaml:"column"`
	Children  ChildConfig     `yaml:"children"`
	Entry     EntryConfig     `yaml:"entry"`
	Helper    HelperConfig    `yaml:"helper"`
	Selection SelectionConfig `yaml:"selection"`
	Events    EventsConfig    `yaml:"events"`
	Settings  SettingsConfig  `yaml:"settings"`
}

// DefaultConfig returns a configuration with every choice at its default.
func DefaultConfig() Config {
	axis := AxisConfig{
		DataSource:   DataSourceXPath,
		SortingOrder: SortAsc,
		TitleType:    TitleAttribute,
	}
	event := EventConfig{
		Action:      ActionNothing,
		ClickFormat: ClickSingle,
		OpenPageAs:  "content",
	}
	return Config{
		Row:    axis,
		Column: axis,
		Children: ChildConfig{
			Scenario:     ChildDisabled,
			ActionMethod: DataSourceMicroflow,
		},
		Entry: EntryConfig{
			DataSource: DataSourceMicroflow,
			TitleType:  TitleAttribute,
		},
		Selection: SelectionConfig{
			Mode:           SelectNone,
			OnChangeAction: ActionNothing,
		},
		Events: EventsConfig{
			Row:    event,
			Column: event,
			Entry:  event,
			Empty:  event,
		},
		Settings: SettingsConfig{
			LeftColumnWidth: 200,
			CellColumnWidth: 100,
			WidthUnit:       "percentage",
			Width:           100,
			HeightUnit:      "pixels",
			Height:          400,
		},
	}
}

// Load reads a YAML configuration file on top of DefaultConfig.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration on top of DefaultConfig.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.validate()
	return cfg, nil
}

// validate restores defaults for values left empty by the file.
func (c *Config) validate() {
	def := DefaultConfig()
	fixAxis(&c.Row, def.Row)
	fixAxis(&c.Column, def.Column)
	if c.Children.Scenario == "" {
		c.Children.Scenario = def.Children.Scenario
	}
	if c.Children.ActionMethod == "" {
		c.Children.ActionMethod = def.Children.ActionMethod
	}
	if c.Entry.DataSource == "" {
		c.Entry.DataSource = def.Entry.DataSource
	}
	if c.Entry.TitleType == "" {
		c.Entry.TitleType = def.Entry.TitleType
	}
	if c.Selection.Mode == "" {
		c.Selection.Mode = def.Selection.Mode
	}
	if c.Selection.OnChangeAction == "" {
		c.Selection.OnChangeAction = def.Selection.OnChangeAction
	}
	for _, ev := range []*EventConfig{&c.Events.Row, &c.Events.Column, &c.Events.Entry, &c.Events.Empty} {
		if ev.Action == "" {
			ev.Action = ActionNothing
		}
		if ev.ClickFormat == "" {
			ev.ClickFormat = ClickSingle
		}
	}
	if c.Settings.LeftColumnWidth <= 0 {
		c.Settings.LeftColumnWidth = def.Settings.LeftColumnWidth
	}
	if c.Settings.CellColumnWidth <= 0 {
		c.Settings.CellColumnWidth = def.Settings.CellColumnWidth
	}
}

func fixAxis(a *AxisConfig, def AxisConfig) {
	if a.DataSource == "" {
		a.DataSource = def.DataSource
	}
	if a.SortingOrder == "" {
		a.SortingOrder = def.SortingOrder
	}
	if a.TitleType == "" {
		a.TitleType = def.TitleType
	}
}
