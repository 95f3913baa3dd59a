// Package query parses the collection query surface (where/orderBy/limit)
// and executes it over an in-memory candidate set.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// operators in priority order. Longer tokens come first: "=" is a substring
// of "==" and must be tried last.
var operators = []string{">=", "<=", "!=", "==", ">", "<", "="}

// Condition is a single where clause. Value holds the coerced literal:
// bool, int64, float64, or string.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Query is the parsed form of one request's query parameters.
type Query struct {
	Where          []Condition `json:"where"`
	OrderBy        string      `json:"order_by"`
	OrderDirection string      `json:"order_direction"`
	Limit          int         `json:"limit"`

	// StartAfter is accepted for forward compatibility with keyset
	// pagination but is not consulted by execution.
	StartAfter string `json:"start_after"`
}

// ParseWhereCondition splits "field<op>value" into a typed condition. A
// clause with no operator becomes an existence check: {field, "==", true}.
func ParseWhereCondition(clause string) Condition {
	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(clause[:idx])
		raw := clause[idx+len(op):]
		if op == "=" {
			op = "=="
		}
		return Condition{
			Field:    field,
			Operator: op,
			Value:    coerceValue(raw),
		}
	}
	return Condition{Field: clause, Operator: "==", Value: true}
}

// coerceValue applies the literal precedence: bool, number, quoted string,
// raw string.
func coerceValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}

	if isNumeric(raw) {
		if !strings.Contains(raw, ".") {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n
			}
		} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		// Digits and dots but not a parseable number ("1.2.3"): raw string.
		return raw
	}

	if len(raw) >= 2 {
		if (raw[0] == '"' && raw[len(raw)-1] == '"') || (raw[0] == '\'' && raw[len(raw)-1] == '\'') {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

// isNumeric reports whether s is non-empty and made of digits and dots only.
func isNumeric(s string) bool {
	if strings.Trim(s, ".") == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// ParseParams collects repeated where clauses (AND semantics), orderBy, limit
// and startAfter from the request query string. An unparseable limit is
// treated as absent rather than an error.
func ParseParams(params url.Values) Query {
	q := Query{OrderDirection: "asc"}
	for _, clause := range params["where"] {
		q.Where = append(q.Where, ParseWhereCondition(clause))
	}
	q.OrderBy = params.Get("orderBy")
	if raw := params.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.Limit = n
		}
	}
	q.StartAfter = params.Get("startAfter")
	return q
}
