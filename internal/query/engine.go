package query

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// lookupField resolves a dot path on the stored value. Field names come from
// request parameters, so gjson's wildcard, array and modifier syntax is
// escaped: a path is only ever plain segment-by-segment traversal.
func lookupField(data json.RawMessage, field string) gjson.Result {
	return gjson.GetBytes(data, escapePath(field))
}

func escapePath(field string) string {
	if !strings.ContainsAny(field, `*?#@|!\`) {
		return field
	}
	var b strings.Builder
	for _, r := range field {
		switch r {
		case '*', '?', '#', '@', '|', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Item is one candidate row a query executes over: the document key, its raw
// JSON value, and the metadata exposed in query results.
type Item struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Owner     string          `json:"owner"`
	CreatedAt time.Time       `json:"created_at"`
}

// ApplyWhere keeps the items matching every condition. Missing fields and
// type mismatches never error; they simply fail the condition.
func ApplyWhere(items []Item, conditions []Condition) []Item {
	if len(conditions) == 0 {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if matchesAll(item, conditions) {
			out = append(out, item)
		}
	}
	return out
}

func matchesAll(item Item, conditions []Condition) bool {
	for _, cond := range conditions {
		value := lookupField(item.Data, cond.Field)

		// "field exists and is non-null" check: a bare field clause parses
		// to {field, "==", true}, and an explicit ==true clause behaves the
		// same way.
		if cond.Operator == "==" && cond.Value == true {
			if !value.Exists() || value.Type == gjson.Null {
				return false
			}
			continue
		}

		if !value.Exists() || value.Type == gjson.Null {
			return false
		}
		if !compare(value, cond.Operator, cond.Value) {
			return false
		}
	}
	return true
}

// compare evaluates <field value> <op> <condition value> with fail-closed
// semantics on type mismatch.
func compare(field gjson.Result, op string, want any) bool {
	switch want := want.(type) {
	case bool:
		if !field.IsBool() {
			return false
		}
		switch op {
		case "==":
			return field.Bool() == want
		case "!=":
			return field.Bool() != want
		default:
			return false
		}
	case int64:
		return compareNumber(field, op, float64(want))
	case float64:
		return compareNumber(field, op, want)
	case string:
		if field.Type != gjson.String {
			return false
		}
		return compareOrdered(field.Str, op, want)
	default:
		return false
	}
}

func compareNumber(field gjson.Result, op string, want float64) bool {
	if field.Type != gjson.Number {
		return false
	}
	return compareOrdered(field.Num, op, want)
}

func compareOrdered[T float64 | string](got T, op string, want T) bool {
	switch op {
	case "==":
		return got == want
	case "!=":
		return got != want
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	default:
		return false
	}
}

// ApplyOrderBy stably sorts items by the dot-path-resolved field. Missing
// values sort as the empty string. direction "desc" inverts the ordering
// while equal keys keep their original relative order.
func ApplyOrderBy(items []Item, field, direction string) []Item {
	if field == "" {
		return items
	}
	type keyed struct {
		item Item
		key  sortKey
	}
	rows := make([]keyed, len(items))
	for i, item := range items {
		rows[i] = keyed{item: item, key: makeSortKey(lookupField(item.Data, field))}
	}

	desc := direction == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return rows[j].key.less(rows[i].key)
		}
		return rows[i].key.less(rows[j].key)
	})

	out := make([]Item, len(rows))
	for i, row := range rows {
		out[i] = row.item
	}
	return out
}

// sortKey is a totally-ordered view of a field value: numbers sort before
// strings, missing and null values collapse to the empty string.
type sortKey struct {
	isNumber bool
	num      float64
	str      string
}

func makeSortKey(value gjson.Result) sortKey {
	if !value.Exists() || value.Type == gjson.Null {
		return sortKey{str: ""}
	}
	switch value.Type {
	case gjson.Number:
		return sortKey{isNumber: true, num: value.Num}
	case gjson.True:
		return sortKey{isNumber: true, num: 1}
	case gjson.False:
		return sortKey{isNumber: true, num: 0}
	default:
		return sortKey{str: value.String()}
	}
}

func (k sortKey) less(other sortKey) bool {
	if k.isNumber != other.isNumber {
		return k.isNumber
	}
	if k.isNumber {
		return k.num < other.num
	}
	return k.str < other.str
}

// ApplyLimit truncates to the first n items of the already-ordered sequence.
// A zero or negative limit is a no-op.
func ApplyLimit(items []Item, n int) []Item {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}
