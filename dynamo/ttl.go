package dynamo

import (
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TTLAttr is the numeric expiry attribute, in Unix seconds.
const TTLAttr = "ttl"

// IsDeleted reports whether the item's TTL has passed. Items without a TTL
// are live.
func IsDeleted(item map[string]types.AttributeValue) bool {
	return isDeletedAt(item, time.Now())
}

func isDeletedAt(item map[string]types.AttributeValue, now time.Time) bool {
	expiry, ok := itemExpiry(item)
	return ok && expired(expiry, now)
}

// itemExpiry returns the item's TTL in Unix seconds.
func itemExpiry(item map[string]types.AttributeValue) (int64, bool) {
	n, ok := item[TTLAttr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	expiry, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return expiry, true
}

func expired(expiry int64, now time.Time) bool {
	return expiry <= now.Unix()
}

func ttlValue(at time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(at.Unix(), 10)}
}

// filter is a scan filter expression with its placeholders.
type filter struct {
	clauses []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

// liveFilter matches live items of one entity as of now.
func liveFilter(entityAttr, entity string, now time.Time) *filter {
	return &filter{
		clauses: []string{
			"#entity = :entity",
			"(attribute_not_exists(#ttl) OR #ttl > :now)",
		},
		names: map[string]string{
			"#entity": entityAttr,
			"#ttl":    TTLAttr,
		},
		values: map[string]types.AttributeValue{
			":entity": &types.AttributeValueMemberS{Value: entity},
			":now":    ttlValue(now),
		},
	}
}

// and adds a clause with its placeholders. Later placeholders win.
func (f *filter) and(clause string, names map[string]string, values map[string]types.AttributeValue) *filter {
	f.clauses = append(f.clauses, "("+clause+")")
	maps.Copy(f.names, names)
	maps.Copy(f.values, values)
	return f
}

func (f *filter) expression() string {
	return strings.Join(f.clauses, " AND ")
}
