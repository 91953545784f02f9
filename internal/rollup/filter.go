package rollup

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/fundpulse/rollupd/internal/domain/models"
)

// isoMillis matches the wire format of timestamps in the record store
// (RFC 3339 with millisecond precision, UTC).
const isoMillis = "2006-01-02T15:04:05.000Z"

// resolveDynamic turns a dynamic value tag into its literal comparison
// value for the given instant. Unknown tags are rejected by Validate, so
// the zero string return is unreachable in a validated configuration.
func resolveDynamic(d models.DynamicValue, now time.Time) any {
	switch d {
	case models.DynamicStartOfYear:
		return time.Date(now.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC).Format(isoMillis)
	}
	return ""
}

// asFloat converts numeric Go values (and JSON numbers) to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// normalizeEquality maps a value into the domain used by equals/in
// comparisons: numbers and numeric-looking strings become float64, booleans
// stay booleans, timestamps become their ISO string, other strings stay
// strings. The second return is false when the value has no normal form
// (nil, maps, slices).
func normalizeEquality(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if f, ok := asFloat(v); ok {
		return f, true
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		if t != "" {
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f, true
			}
		}
		return t, true
	case time.Time:
		return t.UTC().Format(isoMillis), true
	}
	return nil, false
}

// parseTimestamp accepts the timestamp shapes seen in record fields:
// RFC 3339 (with or without fractional seconds) and plain calendar dates.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// toComparable converts a value to a number for ordering comparisons:
// numbers as-is, numeric strings parsed, non-numeric strings parsed as
// timestamps (epoch milliseconds), time values as epoch milliseconds.
// Anything unconvertible makes the enclosing predicate false.
func toComparable(v any) (float64, bool) {
	if f, ok := asFloat(v); ok {
		return f, true
	}
	switch t := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f, true
		}
		if ts, ok := parseTimestamp(t); ok {
			return float64(ts.UnixMilli()), true
		}
	case time.Time:
		return float64(t.UnixMilli()), true
	}
	return 0, false
}

// compareValues returns the sign of left-right in the comparable-number
// domain, or ok=false when either side does not convert.
func compareValues(left, right any) (float64, bool) {
	l, lok := toComparable(left)
	r, rok := toComparable(right)
	if !lok || !rok {
		return 0, false
	}
	return l - r, true
}

// Evaluate tests the value at the filter's field path against the filter's
// operator and (possibly dynamically resolved) comparison value.
func Evaluate(record models.Record, f models.FilterConfig, now time.Time) bool {
	raw := record.Value(f.Field)

	source := f.Value
	if f.DynamicValue != "" {
		source = resolveDynamic(f.DynamicValue, now)
	}

	switch f.Operator {
	case models.OpEquals:
		return looseEqual(raw, source)
	case models.OpNotEquals:
		return !looseEqual(raw, source)
	case models.OpIn:
		return member(raw, source)
	case models.OpNotIn:
		return !member(raw, source)
	case models.OpGt:
		d, ok := compareValues(raw, source)
		return ok && d > 0
	case models.OpGte:
		d, ok := compareValues(raw, source)
		return ok && d >= 0
	case models.OpLt:
		d, ok := compareValues(raw, source)
		return ok && d < 0
	case models.OpLte:
		d, ok := compareValues(raw, source)
		return ok && d <= 0
	}
	return true
}

// looseEqual compares both sides in the normalized equality domain and
// falls back to strict (deep) equality when either side has no normal form.
func looseEqual(left, right any) bool {
	l, lok := normalizeEquality(left)
	r, rok := normalizeEquality(right)
	if lok && rok {
		return l == r
	}
	return reflect.DeepEqual(left, right)
}

// member tests normalized membership of left in the right-hand array. A
// non-array right side never matches.
func member(left, right any) bool {
	candidates, ok := right.([]any)
	if !ok {
		return false
	}
	l, lok := normalizeEquality(left)
	if !lok {
		return false
	}
	for _, c := range candidates {
		if n, ok := normalizeEquality(c); ok && n == l {
			return true
		}
	}
	return false
}

// Matches reports whether the record satisfies every filter in the set.
func Matches(record models.Record, filters []models.FilterConfig, now time.Time) bool {
	for _, f := range filters {
		if !Evaluate(record, f, now) {
			return false
		}
	}
	return true
}

// applyFilters narrows records to those matching every filter. A nil or
// empty filter set returns the input unchanged.
func applyFilters(records []models.Record, filters []models.FilterConfig, now time.Time) []models.Record {
	if len(filters) == 0 {
		return records
	}
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, filters, now) {
			out = append(out, r)
		}
	}
	return out
}

// isFinite reports whether f is a usable number (not NaN or infinite).
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
