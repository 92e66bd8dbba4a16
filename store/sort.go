package store

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// sortByKey orders items by their sort key. Ascending is stable with missing
// keys last; descending is the exact reverse of ascending.
func sortByKey[T any](items []T, t SortType, key func(T) any) []T {
	if t == SortNone {
		return items
	}
	slices.SortStableFunc(items, func(a, b T) int {
		return compareSortKeys(key(a), key(b))
	})
	if t == SortDesc {
		slices.Reverse(items)
	}
	return items
}

// compareSortKeys ranks booleans, numbers, strings, times and other values
// in that order, with nil after everything.
func compareSortKeys(a, b any) int {
	ra, rb := sortRank(a), sortRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNumber:
		return cmp.Compare(toFloat(a), toFloat(b))
	case rankString:
		return cmp.Compare(a.(string), b.(string))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankBool:
		return cmp.Compare(boolInt(a.(bool)), boolInt(b.(bool)))
	case rankOther:
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	return 0
}

const (
	rankBool = iota
	rankNumber
	rankString
	rankTime
	rankOther
	rankNil
)

func sortRank(v any) int {
	switch v.(type) {
	case nil:
		return rankNil
	case bool:
		return rankBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return rankNumber
	case string:
		return rankString
	case time.Time:
		return rankTime
	}
	return rankOther
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
