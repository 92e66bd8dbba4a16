// Command dyntable renders a dynamic table from a DynamoDB records table and
// prints the projection as YAML.
//
//	dyntable -config table.yaml -context <record-id>
//
// Settings may also come from the environment or a .env file:
// DYNTABLE_CONFIG, DYNTABLE_CONTEXT, DYNTABLE_TABLE, DYNAMODB_ENDPOINT and
// DYNTABLE_LOG_LEVEL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/dyntable/config"
	"github.com/jacentio/dyntable/dynamo"
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/internal/keys"
	"github.com/jacentio/dyntable/store"
	"github.com/jacentio/dyntable/widget"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("DYNTABLE_CONFIG"), "path to the table configuration")
	contextID := flag.String("context", os.Getenv("DYNTABLE_CONTEXT"), "ID of the context record")
	table := flag.String("table", os.Getenv("DYNTABLE_TABLE"), "DynamoDB records table")
	endpoint := flag.String("endpoint", os.Getenv("DYNAMODB_ENDPOINT"), "DynamoDB endpoint override")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	metrics := flag.Bool("metrics", false, "log request counters on exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	if *configPath == "" || *contextID == "" {
		fmt.Fprintln(os.Stderr, "usage: dyntable -config <file> -context <id>")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, logger, options{
		configPath: *configPath,
		contextID:  *contextID,
		table:      *table,
		endpoint:   *endpoint,
		metrics:    *metrics,
	}); err != nil {
		logger.Error("dyntable failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	contextID  string
	table      string
	endpoint   string
	metrics    bool
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if opts.endpoint != "" {
			o.BaseEndpoint = aws.String(opts.endpoint)
		}
	})

	reg := prometheus.NewRegistry()
	dcfg := dynamo.DefaultConfig()
	dcfg.Table = opts.table
	dcfg.Registerer = reg
	dcfg.Logger = logger
	h := dynamo.NewWithRegistry(client, dcfg, registryFor(cfg))
	registerEntriesFlow(h, cfg)

	contextRec, err := h.Get(ctx, opts.contextID)
	if err != nil {
		return fmt.Errorf("get context %s: %w", opts.contextID, err)
	}

	w := widget.New(h, cfg, widget.Options{Logger: logger})
	defer w.Close()

	for _, m := range w.Store().ValidationMessages() {
		logger.Warn("configuration", "fatal", m.Fatal, "message", m.String())
	}
	if w.Store().Disabled() {
		return errors.New("configuration has fatal errors")
	}

	if err := w.SetContext(ctx, contextRec); err != nil {
		return err
	}
	w.Store().Settle()

	out, err := yaml.Marshal(render(w.Store()))
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return err
	}

	if opts.metrics {
		logCounters(logger, reg)
	}
	return nil
}

// registryFor registers the configured entities. The helper entity is the
// only transient one.
func registryFor(cfg config.Config) *dynamo.Registry {
	reg := dynamo.NewRegistry()
	for _, name := range []string{cfg.Row.Entity, cfg.Column.Entity, cfg.Entry.Entity} {
		if name != "" {
			reg.Register(dynamo.Entity{Name: name, Persistable: true})
		}
	}
	if cfg.Helper.Entity != "" {
		reg.Register(dynamo.Entity{Name: cfg.Helper.Entity, Persistable: false})
	}
	return reg
}

// registerEntriesFlow installs a flow under the configured entries flow name
// that returns the entries referencing the helper's rows and columns.
func registerEntriesFlow(h *dynamo.Host, cfg config.Config) {
	name := cfg.Entry.Microflow
	if cfg.Entry.DataSource == config.DataSourceNanoflow {
		name = cfg.Entry.Nanoflow
	}
	if name == "" || cfg.Entry.Entity == "" {
		return
	}

	rowRef := keys.Reference(cfg.Entry.RowReference)
	colRef := keys.Reference(cfg.Entry.ColumnReference)
	helperRow := keys.Reference(cfg.Helper.RowReference)
	helperCol := keys.Reference(cfg.Helper.ColumnReference)

	h.RegisterFlow(name, func(ctx context.Context, helper host.Record) (host.Result, error) {
		rows := set(helper.References(helperRow))
		cols := set(helper.References(helperCol))
		all, err := h.Query(ctx, cfg.Entry.Entity, "", nil)
		if err != nil {
			return host.Result{}, err
		}
		var out []host.Record
		for _, rec := range all {
			if rows[rec.Reference(rowRef)] && cols[rec.Reference(colRef)] {
				out = append(out, rec)
			}
		}
		return host.Result{Records: out}, nil
	})
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// --- Output ---

type tableView struct {
	Columns []columnView `yaml:"columns"`
	Rows    []rowView    `yaml:"rows"`
}

type columnView struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Class string `yaml:"class,omitempty"`
}

type rowView struct {
	ID       string            `yaml:"id"`
	Title    string            `yaml:"title"`
	Class    string            `yaml:"class,omitempty"`
	Cells    map[string]string `yaml:"cells,omitempty"`
	Children []rowView         `yaml:"children,omitempty"`
}

func render(s *store.TableStore) tableView {
	var view tableView
	for _, c := range s.TableColumns() {
		view.Columns = append(view.Columns, columnView{ID: c.ID, Title: c.Title, Class: c.ClassName})
	}
	view.Rows = renderRows(s.TableRows())
	return view
}

func renderRows(rows []*store.TableRow) []rowView {
	out := make([]rowView, 0, len(rows))
	for _, r := range rows {
		rv := rowView{ID: r.ID, Title: r.Title, Class: r.ClassName}
		for key, cell := range r.Cells {
			if cell == nil {
				continue
			}
			if rv.Cells == nil {
				rv.Cells = make(map[string]string)
			}
			rv.Cells[keys.ColumnID(key)] = cell.Title
		}
		if len(r.Children) > 0 {
			rv.Children = renderRows(r.Children)
		}
		out = append(out, rv)
	}
	return out
}

func logCounters(logger *slog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", "error", err)
		return
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			logger.Info("counter", attrs...)
		}
	}
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("DYNTABLE_LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
