// Package stream turns DynamoDB Streams records into record change
// notifications.
package stream

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/dyntable/dynamo"
)

// Notifier delivers a change notification for one record.
type Notifier interface {
	Notify(id string) int
}

// Handler processes DynamoDB stream events for a records table.
type Handler struct {
	notifier Notifier
	idAttr   string
	logger   *slog.Logger
}

// NewHandler creates a new stream handler for items keyed by "id".
func NewHandler(n Notifier, logger *slog.Logger) *Handler {
	return NewHandlerWithIDAttr(n, "id", logger)
}

// NewHandlerWithIDAttr creates a new stream handler for items keyed by idAttr.
func NewHandlerWithIDAttr(n Notifier, idAttr string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if idAttr == "" {
		idAttr = "id"
	}
	return &Handler{
		notifier: n,
		idAttr:   idAttr,
		logger:   logger,
	}
}

// HandleChanges notifies subscribers of every inserted, modified or removed
// item. This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleChanges(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := ctx.Err(); err != nil {
			return err // Will retry the rest of the batch
		}
		h.processRecord(record)
	}
	return nil
}

func (h *Handler) processRecord(record events.DynamoDBEventRecord) {
	switch record.EventName {
	case "INSERT", "MODIFY", "REMOVE":
	default:
		return
	}

	id := recordID(record.Change, h.idAttr)
	if id == "" {
		h.logger.Warn("stream record has no record id",
			"eventID", record.EventID,
			"eventName", record.EventName,
		)
		return
	}

	if record.EventName == "MODIFY" && ttlNewlySet(record.Change) {
		at, _ := expiry(record.Change.NewImage)
		h.logger.Info("record soft deleted", "id", id, "expiry", at)
	}

	n := h.notifier.Notify(id)
	h.logger.Debug("record changed",
		"id", id,
		"eventName", record.EventName,
		"subscribers", n,
	)
}

// recordID reads the record ID from the change keys, falling back to the
// new image.
func recordID(change events.DynamoDBStreamRecord, attr string) string {
	for _, image := range []map[string]events.DynamoDBAttributeValue{change.Keys, change.NewImage} {
		if v, ok := image[attr]; ok && v.DataType() == events.DataTypeString && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// expiry returns the image's TTL in Unix seconds.
func expiry(image map[string]events.DynamoDBAttributeValue) (int64, bool) {
	v, ok := image[dynamo.TTLAttr]
	if !ok || v.DataType() != events.DataTypeNumber {
		return 0, false
	}
	at, err := strconv.ParseInt(v.Number(), 10, 64)
	if err != nil {
		return 0, false
	}
	return at, true
}

// ttlNewlySet reports whether the change expired a record that had no TTL.
func ttlNewlySet(change events.DynamoDBStreamRecord) bool {
	if _, had := expiry(change.OldImage); had {
		return false
	}
	return dynamo.IsDeleted(ConvertImage(change.NewImage))
}

// ConvertImage converts the scalar attributes of a DynamoDB stream image to
// SDK attribute values. Other attribute types are skipped.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue)
	for k, v := range image {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		case events.DataTypeBoolean:
			result[k] = &types.AttributeValueMemberBOOL{Value: v.Boolean()}
		}
	}
	return result
}
