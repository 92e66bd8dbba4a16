//go:build e2e

// Package e2e contains end-to-end integration tests against a real DynamoDB
// table. Run with: go test -tags=e2e -v ./e2e/...
//
// DYNAMODB_ENDPOINT points the tests at DynamoDB Local; otherwise the
// default AWS configuration is used, optionally with DYNTABLE_E2E_PROFILE.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	tableconfig "github.com/jacentio/dyntable/config"
	"github.com/jacentio/dyntable/dynamo"
	"github.com/jacentio/dyntable/host"
	"github.com/jacentio/dyntable/stream"
	"github.com/jacentio/dyntable/widget"
)

const tablePrefix = "dyntable-e2e-test"

var (
	testID      string
	recordTable string

	ddbClient *dynamodb.Client
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	recordTable = fmt.Sprintf("%s-%s-records", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Table: %s\n", recordTable)

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if profile := os.Getenv("DYNTABLE_E2E_PROFILE"); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint := os.Getenv("DYNAMODB_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	if err := createTable(ctx); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := deleteTable(ctx); err != nil {
		fmt.Printf("Failed to delete table: %v\n", err)
	}

	os.Exit(code)
}

func createTable(ctx context.Context) error {
	fmt.Println("Creating test table...")

	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(recordTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", recordTable, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(recordTable),
	}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", recordTable, err)
	}

	fmt.Println("Table created and active")
	return nil
}

func deleteTable(ctx context.Context) error {
	fmt.Println("Deleting test table...")
	_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(recordTable),
	})
	if err != nil {
		return fmt.Errorf("delete table %s: %w", recordTable, err)
	}
	fmt.Println("Table deleted")
	return nil
}

// --- Helpers ---

// newHost creates a host with the sales entities registered.
func newHost(t *testing.T) (*dynamo.Host, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	registry := dynamo.NewRegistry()
	for _, name := range []string{"Sales.Report", "Sales.Region", "Sales.Quarter", "Sales.Figure"} {
		registry.Register(dynamo.Entity{Name: name, Persistable: true})
	}
	registry.Register(dynamo.Entity{Name: "Sales.Helper", Persistable: false})

	h := dynamo.NewWithRegistry(ddbClient, dynamo.Config{
		Table:      recordTable,
		Registerer: reg,
	}, registry)
	return h, reg
}

// putRecord writes a record directly, bypassing the host.
func putRecord(t *testing.T, entity, id string, attrs map[string]any) {
	t.Helper()
	item, err := attributevalue.MarshalMap(attrs)
	if err != nil {
		t.Fatalf("marshal %s: %v", id, err)
	}
	item["id"] = &types.AttributeValueMemberS{Value: id}
	item["entity"] = &types.AttributeValueMemberS{Value: entity}
	if _, err := ddbClient.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(recordTable),
		Item:      item,
	}); err != nil {
		t.Fatalf("put %s: %v", id, err)
	}
}

// salesFixture seeds one report with two regions, two quarters and figures.
// IDs are unique per call so tests don't see each other's records.
type salesFixture struct {
	report, r1, r2, q1, q2 string
}

func seedSales(t *testing.T) salesFixture {
	t.Helper()
	p := uuid.New().String()[:8] + "-"
	f := salesFixture{report: p + "rep", r1: p + "r1", r2: p + "r2", q1: p + "q1", q2: p + "q2"}

	putRecord(t, "Sales.Report", f.report, map[string]any{"label": "FY"})
	putRecord(t, "Sales.Region", f.r1, map[string]any{"label": "North", "report_id": f.report, "rank": 2})
	putRecord(t, "Sales.Region", f.r2, map[string]any{"label": "South", "report_id": f.report, "rank": 1})
	putRecord(t, "Sales.Quarter", f.q1, map[string]any{"label": "Q1", "report_id": f.report})
	putRecord(t, "Sales.Quarter", f.q2, map[string]any{"label": "Q2", "report_id": f.report})
	putRecord(t, "Sales.Figure", p+"f1", map[string]any{"value": "10", "figure_region": f.r1, "figure_quarter": f.q1})
	putRecord(t, "Sales.Figure", p+"f2", map[string]any{"value": "20", "figure_region": f.r2, "figure_quarter": f.q2})
	return f
}

func salesConfig() tableconfig.Config {
	cfg := tableconfig.DefaultConfig()
	cfg.Row.Entity = "Sales.Region"
	cfg.Row.Constraint = "report_id = :context"
	cfg.Row.TitleAttr = "label"
	cfg.Row.SortingAttribute = "rank"
	cfg.Column.Entity = "Sales.Quarter"
	cfg.Column.Constraint = "report_id = :context"
	cfg.Column.TitleAttr = "label"
	cfg.Entry = tableconfig.EntryConfig{
		Entity:          "Sales.Figure",
		RowReference:    "figure_region/Sales.Region",
		ColumnReference: "figure_quarter/Sales.Quarter",
		DataSource:      tableconfig.DataSourceMicroflow,
		Microflow:       "Sales.GetFigures",
		TitleType:       tableconfig.TitleAttribute,
		TitleAttr:       "value",
	}
	cfg.Helper = tableconfig.HelperConfig{
		Entity:           "Sales.Helper",
		RowReference:     "helper_region/Sales.Region",
		ColumnReference:  "helper_quarter/Sales.Quarter",
		ContextReference: "helper_report/Sales.Report",
	}
	return cfg
}

// registerFigures installs the entries flow.
func registerFigures(h *dynamo.Host) {
	h.RegisterFlow("Sales.GetFigures", func(ctx context.Context, helper host.Record) (host.Result, error) {
		rows := map[string]bool{}
		for _, id := range helper.References("helper_region") {
			rows[id] = true
		}
		cols := map[string]bool{}
		for _, id := range helper.References("helper_quarter") {
			cols[id] = true
		}
		all, err := h.Query(ctx, "Sales.Figure", "", nil)
		if err != nil {
			return host.Result{}, err
		}
		var out []host.Record
		for _, rec := range all {
			if rows[rec.Reference("figure_region")] && cols[rec.Reference("figure_quarter")] {
				out = append(out, rec)
			}
		}
		return host.Result{Records: out}, nil
	})
}

// --- Widget Tests ---

func TestWidget_RendersTable(t *testing.T) {
	ctx := context.Background()
	f := seedSales(t)
	h, reg := newHost(t)
	registerFigures(h)

	report, err := h.Get(ctx, f.report)
	if err != nil {
		t.Fatalf("Get report failed: %v", err)
	}

	w := widget.New(h, salesConfig(), widget.Options{})
	defer w.Close()
	if err := w.SetContext(ctx, report); err != nil {
		t.Fatalf("SetContext failed: %v", err)
	}
	w.Store().Settle()

	rows := w.Store().TableRows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != f.r2 || rows[1].ID != f.r1 {
		t.Errorf("expected rows sorted by rank, got %s, %s", rows[0].ID, rows[1].ID)
	}
	if cell := rows[1].Cells["col-"+f.q1]; cell == nil || cell.Title != "10" {
		t.Errorf("expected r1/q1 = 10, got %+v", cell)
	}
	if cell := rows[0].Cells["col-"+f.q2]; cell == nil || cell.Title != "20" {
		t.Errorf("expected r2/q2 = 20, got %+v", cell)
	}
	if cell := rows[0].Cells["col-"+f.q1]; cell != nil {
		t.Errorf("expected r2/q1 empty, got %+v", cell)
	}

	if got := testutil.ToFloat64(h.Metrics().Requests.WithLabelValues("put")); got != 1 {
		t.Errorf("expected one helper put, got %v", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("expected registered metrics, got %d (%v)", n, err)
	}
}

func TestWidget_ChangeFeedRefreshesRow(t *testing.T) {
	ctx := context.Background()
	f := seedSales(t)
	h, _ := newHost(t)
	registerFigures(h)

	report, err := h.Get(ctx, f.report)
	if err != nil {
		t.Fatalf("Get report failed: %v", err)
	}
	w := widget.New(h, salesConfig(), widget.Options{})
	defer w.Close()
	if err := w.SetContext(ctx, report); err != nil {
		t.Fatalf("SetContext failed: %v", err)
	}

	putRecord(t, "Sales.Region", f.r1, map[string]any{"label": "North West", "report_id": f.report, "rank": 2})

	handler := stream.NewHandler(h, nil)
	err = handler.HandleChanges(ctx, events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{{
		EventName: "MODIFY",
		Change: events.DynamoDBStreamRecord{
			Keys: map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute(f.r1)},
		},
	}}})
	if err != nil {
		t.Fatalf("HandleChanges failed: %v", err)
	}

	row, ok := w.Store().Row(f.r1)
	if !ok {
		t.Fatal("expected r1 to remain")
	}
	if row.Title() != "North West" {
		t.Errorf("expected refreshed title, got %q", row.Title())
	}
}

// --- Host Tests ---

func TestHost_CommitTransientSetsTTL(t *testing.T) {
	ctx := context.Background()
	h, _ := newHost(t)

	rec, err := h.Create(ctx, "Sales.Helper")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	rec.AddReferences("helper_region", []string{"a", "b"})
	if err := h.Commit(ctx, rec); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	result, err := ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(recordTable),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: rec.ID()}},
	})
	if err != nil {
		t.Fatalf("Direct get failed: %v", err)
	}
	if _, ok := result.Item["ttl"]; !ok {
		t.Error("expected ttl on transient record")
	}
	if dynamo.IsDeleted(result.Item) {
		t.Error("expected transient record to be live")
	}
}

func TestHost_SoftDelete(t *testing.T) {
	ctx := context.Background()
	h, _ := newHost(t)

	id := uuid.New().String()
	putRecord(t, "Sales.Region", id, map[string]any{"label": "Doomed", "report_id": "none"})

	if err := h.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := h.Get(ctx, id); !errors.Is(err, host.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	recs, err := h.Query(ctx, "Sales.Region", "report_id = :context", host.NewObject("Sales.Report", "none", nil))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected deleted record to be filtered, got %d", len(recs))
	}

	if err := h.Delete(ctx, uuid.New().String()); !errors.Is(err, host.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing record, got %v", err)
	}
}

func TestHost_GetManyKeepsOrder(t *testing.T) {
	ctx := context.Background()
	h, _ := newHost(t)

	ids := []string{uuid.New().String(), uuid.New().String(), uuid.New().String()}
	for i, id := range ids {
		putRecord(t, "Sales.Quarter", id, map[string]any{"label": fmt.Sprintf("Q%d", i+1)})
	}

	recs, err := h.GetMany(ctx, []string{ids[2], "missing-" + testID, ids[0]})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(recs) != 2 || recs[0].ID() != ids[2] || recs[1].ID() != ids[0] {
		t.Errorf("expected [%s %s], got %v", ids[2], ids[0], host.IDs(recs))
	}
}
