package rollup

import (
	"testing"
	"time"

	"github.com/fundpulse/rollupd/internal/domain/models"
)

var evalNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestEvaluate_TableDriven(t *testing.T) {
	record := models.Record{
		"status": "active",
		"score":  "100",
		"paid":   true,
		"amount": map[string]any{
			"amountMicros": float64(120500000),
			"currencyCode": "GBP",
		},
		"giftDate": "2025-01-15T12:00:00.000Z",
	}

	cases := []struct {
		name   string
		filter models.FilterConfig
		want   bool
	}{
		{
			name:   "equals string",
			filter: models.FilterConfig{Field: "status", Operator: models.OpEquals, Value: "active"},
			want:   true,
		},
		{
			name:   "equals numeric string vs number",
			filter: models.FilterConfig{Field: "score", Operator: models.OpEquals, Value: 100},
			want:   true,
		},
		{
			name:   "equals bool",
			filter: models.FilterConfig{Field: "paid", Operator: models.OpEquals, Value: true},
			want:   true,
		},
		{
			name:   "notEquals mismatch",
			filter: models.FilterConfig{Field: "status", Operator: models.OpNotEquals, Value: "inactive"},
			want:   true,
		},
		{
			name:   "nested path gt",
			filter: models.FilterConfig{Field: "amount.amountMicros", Operator: models.OpGt, Value: 0},
			want:   true,
		},
		{
			name:   "missing path gt is false",
			filter: models.FilterConfig{Field: "missing.path", Operator: models.OpGt, Value: 0},
			want:   false,
		},
		{
			name:   "missing path equals literal is false",
			filter: models.FilterConfig{Field: "missing", Operator: models.OpEquals, Value: "x"},
			want:   false,
		},
		{
			name:   "in membership normalized",
			filter: models.FilterConfig{Field: "score", Operator: models.OpIn, Value: []any{"50", 100}},
			want:   true,
		},
		{
			name:   "in with non-array value is false",
			filter: models.FilterConfig{Field: "status", Operator: models.OpIn, Value: "active"},
			want:   false,
		},
		{
			name:   "notIn with non-array value is true",
			filter: models.FilterConfig{Field: "status", Operator: models.OpNotIn, Value: "active"},
			want:   true,
		},
		{
			name:   "notIn excludes member",
			filter: models.FilterConfig{Field: "status", Operator: models.OpNotIn, Value: []any{"active"}},
			want:   false,
		},
		{
			name:   "lt on timestamps",
			filter: models.FilterConfig{Field: "giftDate", Operator: models.OpLt, Value: "2026-01-01"},
			want:   true,
		},
		{
			name:   "gte on unparseable value is false",
			filter: models.FilterConfig{Field: "status", Operator: models.OpGte, Value: 10},
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(record, tc.filter, evalNow); got != tc.want {
				t.Fatalf("Evaluate(%+v) = %v, want %v", tc.filter, got, tc.want)
			}
		})
	}
}

func TestEvaluate_StartOfYearBoundary(t *testing.T) {
	filter := models.FilterConfig{
		Field:        "giftDate",
		Operator:     models.OpGte,
		DynamicValue: models.DynamicStartOfYear,
	}

	lastYear := models.Record{"giftDate": "2024-12-31T23:59:59Z"}
	if Evaluate(lastYear, filter, evalNow) {
		t.Fatalf("record dated 2024-12-31T23:59:59Z must be excluded for now in 2025")
	}

	thisYear := models.Record{"giftDate": "2025-01-01T00:00:00Z"}
	if !Evaluate(thisYear, filter, evalNow) {
		t.Fatalf("record dated 2025-01-01T00:00:00Z must be included for now in 2025")
	}
}

func TestMatches_Conjunction(t *testing.T) {
	record := models.Record{"a": float64(1), "b": float64(2)}
	filters := []models.FilterConfig{
		{Field: "a", Operator: models.OpEquals, Value: 1},
		{Field: "b", Operator: models.OpEquals, Value: 3},
	}
	if Matches(record, filters, evalNow) {
		t.Fatalf("record must fail when any filter in the set fails")
	}
	if !Matches(record, filters[:1], evalNow) {
		t.Fatalf("record must pass when every filter passes")
	}
}

func TestApplyFilters_EmptySetReturnsInput(t *testing.T) {
	records := []models.Record{{"a": 1}, {"a": 2}}
	got := applyFilters(records, nil, evalNow)
	if len(got) != 2 {
		t.Fatalf("expected all records back, got %d", len(got))
	}
}

func TestToComparable(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"number", float64(42), 42, true},
		{"numeric string", "42.5", 42.5, true},
		{"timestamp string", "1970-01-01T00:00:01Z", 1000, true},
		{"date string", "1970-01-02", 86400000, true},
		{"time value", time.UnixMilli(1500).UTC(), 1500, true},
		{"garbage", "not a date", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toComparable(tc.value)
			if ok != tc.ok || (ok && got != tc.want) {
				t.Fatalf("toComparable(%v) = (%v, %v), want (%v, %v)", tc.value, got, ok, tc.want, tc.ok)
			}
		})
	}
}
