package stream

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func TestRecordID(t *testing.T) {
	str := events.NewStringAttribute
	tests := []struct {
		name     string
		change   events.DynamoDBStreamRecord
		expected string
	}{
		{"from keys", events.DynamoDBStreamRecord{Keys: map[string]events.DynamoDBAttributeValue{"id": str("r1")}}, "r1"},
		{"keys win", events.DynamoDBStreamRecord{
			Keys:     map[string]events.DynamoDBAttributeValue{"id": str("r1")},
			NewImage: map[string]events.DynamoDBAttributeValue{"id": str("r2")},
		}, "r1"},
		{"from new image", events.DynamoDBStreamRecord{NewImage: map[string]events.DynamoDBAttributeValue{"id": str("r2")}}, "r2"},
		{"number key", events.DynamoDBStreamRecord{Keys: map[string]events.DynamoDBAttributeValue{"id": events.NewNumberAttribute("1")}}, ""},
		{"missing", events.DynamoDBStreamRecord{Keys: map[string]events.DynamoDBAttributeValue{"other": str("x")}}, ""},
		{"empty", events.DynamoDBStreamRecord{}, ""},
		{"unicode", events.DynamoDBStreamRecord{Keys: map[string]events.DynamoDBAttributeValue{"id": str("日本語")}}, "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordID(tt.change, "id"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExpiry(t *testing.T) {
	tests := []struct {
		name   string
		image  map[string]events.DynamoDBAttributeValue
		want   int64
		wantOK bool
	}{
		{"valid number", map[string]events.DynamoDBAttributeValue{"ttl": events.NewNumberAttribute("1700000000")}, 1700000000, true},
		{"zero", map[string]events.DynamoDBAttributeValue{"ttl": events.NewNumberAttribute("0")}, 0, true},
		{"missing key", map[string]events.DynamoDBAttributeValue{}, 0, false},
		{"nil image", nil, 0, false},
		{"string attribute", map[string]events.DynamoDBAttributeValue{"ttl": events.NewStringAttribute("12")}, 0, false},
		{"decimal", map[string]events.DynamoDBAttributeValue{"ttl": events.NewNumberAttribute("1.5")}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := expiry(tt.image)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestTTLNewlySet(t *testing.T) {
	image := func(ttl string) map[string]events.DynamoDBAttributeValue {
		img := map[string]events.DynamoDBAttributeValue{
			"id":     events.NewStringAttribute("r1"),
			"entity": events.NewStringAttribute("Sales.Region"),
		}
		if ttl != "" {
			img["ttl"] = events.NewNumberAttribute(ttl)
		}
		return img
	}

	cases := map[string]struct {
		old, new string
		want     bool
	}{
		"soft delete":            {old: "", new: "1", want: true},
		"transient helper":       {old: "", new: "99999999999", want: false},
		"already deleted":        {old: "1", new: "1", want: false},
		"transient then deleted": {old: "99999999999", new: "1", want: false},
		"plain update":           {old: "", new: "", want: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			change := events.DynamoDBStreamRecord{OldImage: image(tc.old), NewImage: image(tc.new)}
			if got := ttlNewlySet(change); got != tc.want {
				t.Errorf("ttlNewlySet = %v, want %v", got, tc.want)
			}
		})
	}
}

func BenchmarkRecordID(b *testing.B) {
	change := events.DynamoDBStreamRecord{
		NewImage: map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("r1")},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recordID(change, "id")
	}
}
