package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jacentio/dyntable/host"
)

// batchGetLimit is the BatchGetItem key limit.
const batchGetLimit = 100

// maxBatchRetries bounds re-requests of unprocessed keys.
const maxBatchRetries = 3

// API is the subset of the DynamoDB client the host uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Host is a host.Host backed by a DynamoDB table.
type Host struct {
	*host.Hub
	*host.Dispatcher

	client   API
	config   Config
	registry *Registry
	cache    *lru.Cache[string, cachedObject]
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

var _ host.Host = (*Host)(nil)

// cachedObject is a decoded record with its TTL. A zero expiry never expires.
type cachedObject struct {
	obj    *host.Object
	expiry int64
}

// New creates a new Host with an empty registry.
func New(client API, config Config) *Host {
	return NewWithRegistry(client, config, NewRegistry())
}

// NewWithRegistry creates a new Host with an entity registry.
func NewWithRegistry(client API, config Config, registry *Registry) *Host {
	config.validate()
	if registry == nil {
		registry = NewRegistry()
	}
	// CacheSize is positive after validate, so New can't fail.
	cache, _ := lru.New[string, cachedObject](config.CacheSize)
	return &Host{
		Hub:        host.NewHub(),
		Dispatcher: host.NewDispatcher(),
		client:     client,
		config:     config,
		registry:   registry,
		cache:      cache,
		metrics:    NewMetrics(config.Registerer),
		logger:     config.Logger,
		now:        time.Now,
	}
}

// Registry returns the entity registry.
func (h *Host) Registry() *Registry {
	return h.registry
}

// Metrics returns the host counters.
func (h *Host) Metrics() *Metrics {
	return h.metrics
}

// Notify evicts the record from the cache and runs its subscribers.
func (h *Host) Notify(id string) int {
	h.cache.Remove(id)
	n := h.Hub.Notify(id)
	h.metrics.Notifications.Add(float64(n))
	return n
}

// Get retrieves a record by ID, returning host.ErrNotFound if deleted or missing.
func (h *Host) Get(ctx context.Context, id string) (host.Record, error) {
	if obj, ok, live := h.cached(id); ok {
		if !live {
			return nil, host.ErrNotFound
		}
		return obj.Clone(), nil
	}
	h.metrics.Requests.WithLabelValues("get").Inc()

	result, err := h.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(h.config.Table),
		Key:            h.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if result.Item == nil || isDeletedAt(result.Item, h.now()) {
		return nil, host.ErrNotFound
	}

	obj, err := h.decode(result.Item)
	if err != nil {
		return nil, err
	}
	return obj.Clone(), nil
}

// GetMany fetches records in the order of ids, skipping deleted ones.
func (h *Host) GetMany(ctx context.Context, ids []string) ([]host.Record, error) {
	found := make(map[string]*host.Object, len(ids))
	var missing []string
	for _, id := range ids {
		if obj, ok, live := h.cached(id); ok {
			if live {
				found[id] = obj
			}
			continue
		}
		missing = append(missing, id)
	}

	for start := 0; start < len(missing); start += batchGetLimit {
		end := min(start+batchGetLimit, len(missing))
		items, err := h.batchGet(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if isDeletedAt(item, h.now()) {
				continue
			}
			obj, err := h.decode(item)
			if err != nil {
				return nil, err
			}
			found[obj.ID()] = obj
		}
	}

	recs := make([]host.Record, 0, len(ids))
	for _, id := range ids {
		if obj, ok := found[id]; ok {
			recs = append(recs, obj.Clone())
		}
	}
	return recs, nil
}

// cached looks id up in the cache. An entry whose TTL has passed is evicted
// and reported as present but not live.
func (h *Host) cached(id string) (obj *host.Object, ok, live bool) {
	entry, ok := h.cache.Get(id)
	if !ok {
		h.metrics.CacheMisses.Inc()
		return nil, false, false
	}
	h.metrics.CacheHits.Inc()
	if entry.expiry != 0 && expired(entry.expiry, h.now()) {
		h.cache.Remove(id)
		return nil, true, false
	}
	return entry.obj, true, true
}

func (h *Host) batchGet(ctx context.Context, ids []string) ([]map[string]types.AttributeValue, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, h.key(id))
	}

	request := map[string]types.KeysAndAttributes{
		h.config.Table: {Keys: keys},
	}
	var items []map[string]types.AttributeValue
	for attempt := 0; len(request) > 0; attempt++ {
		if attempt > maxBatchRetries {
			return nil, fmt.Errorf("batch get: %d keys still unprocessed", len(request[h.config.Table].Keys))
		}
		h.metrics.Requests.WithLabelValues("batch_get").Inc()
		out, err := h.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return nil, fmt.Errorf("batch get: %w", err)
		}
		items = append(items, out.Responses[h.config.Table]...)
		request = out.UnprocessedKeys
		if len(request) > 0 {
			h.logger.Warn("retrying unprocessed keys",
				"table", h.config.Table,
				"count", len(request[h.config.Table].Keys),
			)
		}
	}
	return items, nil
}

// Query scans the table for live records of the entity. A non-empty
// constraint is a DynamoDB filter expression ANDed with the entity and TTL
// filters; ":context" inside it is bound to the context record ID.
func (h *Host) Query(ctx context.Context, entity, constraint string, contextRec host.Record) ([]host.Record, error) {
	f := liveFilter(h.config.EntityAttr, entity, h.now())
	if constraint != "" {
		var values map[string]types.AttributeValue
		if strings.Contains(constraint, ":context") {
			if contextRec == nil {
				return nil, fmt.Errorf("query %s: constraint needs a context record", entity)
			}
			values = map[string]types.AttributeValue{
				":context": &types.AttributeValueMemberS{Value: contextRec.ID()},
			}
		}
		f.and(constraint, nil, values)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(h.config.Table),
		FilterExpression:          aws.String(f.expression()),
		ExpressionAttributeNames:  f.names,
		ExpressionAttributeValues: f.values,
	}

	// Paginate through all results
	var recs []host.Record
	paginator := dynamodb.NewScanPaginator(h.client, input)
	for paginator.HasMorePages() {
		h.metrics.Requests.WithLabelValues("scan").Inc()
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", entity, err)
		}
		for _, item := range page.Items {
			obj, err := h.decode(item)
			if err != nil {
				return nil, err
			}
			recs = append(recs, obj.Clone())
		}
	}
	return recs, nil
}

// Create makes a transient record with a fresh ID. Nothing is written until
// Commit.
func (h *Host) Create(_ context.Context, entity string) (host.MutableRecord, error) {
	if entity == "" {
		return nil, host.ErrUnknownEntity
	}
	return host.NewObject(entity, uuid.NewString(), nil), nil
}

// Commit writes the record. Records of non-persistable entities get a TTL.
func (h *Host) Commit(ctx context.Context, rec host.MutableRecord) error {
	obj, ok := rec.(*host.Object)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotObject, rec)
	}

	item, err := attributevalue.MarshalMap(obj.Values())
	if err != nil {
		return fmt.Errorf("marshal %s: %w", obj, err)
	}
	item[h.config.IDAttr] = &types.AttributeValueMemberS{Value: obj.ID()}
	item[h.config.EntityAttr] = &types.AttributeValueMemberS{Value: obj.Entity()}
	var expiry int64
	if !h.registry.IsPersistable(obj.Entity()) {
		expiry = h.now().Add(h.config.TransientTTL).Unix()
		item[TTLAttr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiry, 10)}
	}

	h.metrics.Requests.WithLabelValues("put").Inc()
	if _, err := h.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.config.Table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put %s: %w", obj, err)
	}
	h.cache.Add(obj.ID(), cachedObject{obj: obj.Clone(), expiry: expiry})
	return nil
}

// Delete marks a record deleted by setting its TTL to now. Subscribers learn
// about it through the change feed.
func (h *Host) Delete(ctx context.Context, id string) error {
	h.metrics.Requests.WithLabelValues("update").Inc()
	_, err := h.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(h.config.Table),
		Key:                       h.key(id),
		UpdateExpression:          aws.String("SET #ttl = :ttl"),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  map[string]string{"#ttl": TTLAttr, "#id": h.config.IDAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":ttl": ttlValue(h.now())},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return host.ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", id, err)
	}
	h.cache.Remove(id)
	return nil
}

// ExecuteAction runs the action through the registered flows and page opener.
func (h *Host) ExecuteAction(ctx context.Context, a host.Action, rec host.Record) (host.Result, error) {
	return h.Execute(ctx, a, rec)
}

// IsPersistable reports whether the entity is registered as persistable.
// Unknown entities are transient.
func (h *Host) IsPersistable(entity string) bool {
	return h.registry.IsPersistable(entity)
}

func (h *Host) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		h.config.IDAttr: &types.AttributeValueMemberS{Value: id},
	}
}

// decode converts an item to a record and caches it.
func (h *Host) decode(item map[string]types.AttributeValue) (*host.Object, error) {
	var attrs map[string]any
	if err := attributevalue.UnmarshalMap(item, &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	id, _ := attrs[h.config.IDAttr].(string)
	entity, _ := attrs[h.config.EntityAttr].(string)
	delete(attrs, h.config.IDAttr)
	delete(attrs, h.config.EntityAttr)
	delete(attrs, TTLAttr)

	obj := host.NewObject(entity, id, attrs)
	if id != "" {
		expiry, _ := itemExpiry(item)
		h.cache.Add(id, cachedObject{obj: obj, expiry: expiry})
	}
	return obj, nil
}
