package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestIsDeleted(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	tests := []struct {
		name     string
		item     map[string]types.AttributeValue
		expected bool
	}{
		{"no ttl", map[string]types.AttributeValue{}, false},
		{"expired", map[string]types.AttributeValue{"ttl": n(999_999)}, true},
		{"expires now", map[string]types.AttributeValue{"ttl": n(1_000_000)}, true},
		{"future", map[string]types.AttributeValue{"ttl": n(1_000_001)}, false},
		{"wrong type", map[string]types.AttributeValue{"ttl": s("123")}, false},
		{"not a number", map[string]types.AttributeValue{"ttl": &types.AttributeValueMemberN{Value: "x"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDeletedAt(tt.item, now); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLiveFilter(t *testing.T) {
	f := liveFilter("entity", "Sales.Region", time.Unix(1_000_000, 0))
	f.and("Owner = :context", map[string]string{"#entity": "kind"}, map[string]types.AttributeValue{":context": s("c1")})

	want := "#entity = :entity AND (attribute_not_exists(#ttl) OR #ttl > :now) AND (Owner = :context)"
	if got := f.expression(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if f.names["#entity"] != "kind" || f.names["#ttl"] != TTLAttr {
		t.Errorf("unexpected names %v", f.names)
	}
	if now, ok := f.values[":now"].(*types.AttributeValueMemberN); !ok || now.Value != "1000000" {
		t.Errorf("unexpected :now %v", f.values[":now"])
	}
	if len(f.values) != 3 {
		t.Errorf("expected 3 values, got %v", f.values)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(Entity{Name: "Region", Persistable: true})
	r.Register(Entity{Name: "Helper"})

	if e, ok := r.Lookup("Region"); !ok || !e.Persistable {
		t.Errorf("unexpected lookup result %+v, %v", e, ok)
	}
	if _, ok := r.Lookup("Missing"); ok {
		t.Error("expected Missing to be unknown")
	}
	all := r.Entities()
	if len(all) != 2 || all[0].Name != "Helper" || all[1].Name != "Region" {
		t.Errorf("unexpected entities %+v", all)
	}
}
