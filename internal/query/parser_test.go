package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhereCondition(t *testing.T) {
	tests := []struct {
		name   string
		clause string
		want   Condition
	}{
		{
			name:   "numeric gte",
			clause: "temperature>=25",
			want:   Condition{Field: "temperature", Operator: ">=", Value: int64(25)},
		},
		{
			name:   "float comparison",
			clause: "humidity<40.5",
			want:   Condition{Field: "humidity", Operator: "<", Value: 40.5},
		},
		{
			name:   "single equals normalized to double",
			clause: "status=active",
			want:   Condition{Field: "status", Operator: "==", Value: "active"},
		},
		{
			name:   "double quoted string unquoted",
			clause: `name=="John"`,
			want:   Condition{Field: "name", Operator: "==", Value: "John"},
		},
		{
			name:   "single quoted string unquoted",
			clause: "city!='Oslo'",
			want:   Condition{Field: "city", Operator: "!=", Value: "Oslo"},
		},
		{
			name:   "boolean literal case insensitive",
			clause: "enabled==TRUE",
			want:   Condition{Field: "enabled", Operator: "==", Value: true},
		},
		{
			name:   "false literal",
			clause: "enabled!=false",
			want:   Condition{Field: "enabled", Operator: "!=", Value: false},
		},
		{
			name:   "no operator becomes existence check",
			clause: "name",
			want:   Condition{Field: "name", Operator: "==", Value: true},
		},
		{
			name:   "dotted path field",
			clause: "address.city==Bergen",
			want:   Condition{Field: "address.city", Operator: "==", Value: "Bergen"},
		},
		{
			name:   "malformed number stays a string",
			clause: "version==1.2.3",
			want:   Condition{Field: "version", Operator: "==", Value: "1.2.3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWhereCondition(tt.clause))
		})
	}
}

func TestParseParams(t *testing.T) {
	t.Run("collects repeated where clauses in order", func(t *testing.T) {
		params := url.Values{}
		params.Add("where", "temperature>20")
		params.Add("where", "device_id=='d1'")

		q := ParseParams(params)
		require.Len(t, q.Where, 2)
		assert.Equal(t, "temperature", q.Where[0].Field)
		assert.Equal(t, "device_id", q.Where[1].Field)
		assert.Equal(t, "asc", q.OrderDirection)
	})

	t.Run("captures orderBy limit and startAfter", func(t *testing.T) {
		params := url.Values{
			"orderBy":    {"created_at"},
			"limit":      {"10"},
			"startAfter": {"doc-42"},
		}
		q := ParseParams(params)
		assert.Equal(t, "created_at", q.OrderBy)
		assert.Equal(t, 10, q.Limit)
		assert.Equal(t, "doc-42", q.StartAfter)
	})

	t.Run("unparseable limit treated as absent", func(t *testing.T) {
		q := ParseParams(url.Values{"limit": {"ten"}})
		assert.Zero(t, q.Limit)
	})
}
