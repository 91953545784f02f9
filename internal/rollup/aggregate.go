package rollup

import (
	"math"
	"strconv"
	"time"

	"github.com/fundpulse/rollupd/internal/domain/models"
)

// roundHalfUp rounds non-integers to two decimal places; integers pass
// through unchanged.
func roundHalfUp(v float64) float64 {
	if v == math.Trunc(v) {
		return v
	}
	return math.Round(v*100) / 100
}

// numericField reads the value at path and converts it to a finite float.
func numericField(r models.Record, path string) (float64, bool) {
	f, ok := toNumber(r.Value(path))
	return f, ok && isFinite(f)
}

// toNumber converts numbers and numeric strings; everything else fails.
func toNumber(v any) (float64, bool) {
	if f, ok := asFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Compute evaluates every aggregation of the definition against the child
// records of one parent and returns the parent update payload, keyed by
// parentField. ChildFilters narrow the whole set first; each aggregation's
// own filters narrow further, scoped to that output only. The payload is
// sanitized: fields whose value could not be represented are dropped, so a
// partial payload is the normal outcome when some aggregates have no input.
func Compute(def models.RollupDefinition, children []models.Record, now time.Time) map[string]any {
	base := applyFilters(children, def.ChildFilters, now)
	out := make(map[string]any, len(def.Aggregations))

	for _, agg := range def.Aggregations {
		scoped := applyFilters(base, agg.Filters, now)

		switch agg.Type {
		case models.AggregationCount:
			out[agg.ParentField] = len(scoped)
		case models.AggregationSum:
			out[agg.ParentField] = computeSum(agg, scoped)
		case models.AggregationAvg:
			out[agg.ParentField] = computeAvg(agg, scoped)
		case models.AggregationMax:
			out[agg.ParentField] = computeExtreme(agg, scoped, 1)
		case models.AggregationMin:
			out[agg.ParentField] = computeExtreme(agg, scoped, -1)
		}
	}

	return Sanitize(out)
}

// computeSum totals the numeric childField across records, skipping any
// record without a finite numeric value, and tags the result with the first
// non-empty currency found at currencyField.
func computeSum(agg models.AggregationConfig, records []models.Record) models.MoneyValue {
	var total float64
	currency := ""
	for _, r := range records {
		if currency == "" && agg.CurrencyField != "" {
			if c, ok := r.Value(agg.CurrencyField).(string); ok && c != "" {
				currency = c
			}
		}
		v, ok := numericField(r, agg.ChildField)
		if !ok {
			continue
		}
		total += v
	}
	return models.MoneyValue{
		AmountMicros: int64(math.Round(roundHalfUp(total))),
		CurrencyCode: currency,
	}
}

// computeAvg returns the arithmetic mean over records with a valid numeric
// value, or nil when none qualify.
func computeAvg(agg models.AggregationConfig, records []models.Record) any {
	var total float64
	count := 0
	for _, r := range records {
		v, ok := numericField(r, agg.ChildField)
		if !ok {
			continue
		}
		total += v
		count++
	}
	if count == 0 {
		return nil
	}
	return roundHalfUp(total / float64(count))
}

// computeExtreme selects the record whose childField is comparable-greatest
// (direction > 0) or comparable-least (direction < 0). Ties keep the first
// record in iteration order. Returns nil when no record has a comparable
// value.
func computeExtreme(agg models.AggregationConfig, records []models.Record, direction float64) any {
	var chosenRaw any
	var chosenCmp float64
	found := false

	for _, r := range records {
		raw := r.Value(agg.ChildField)
		cmp, ok := toComparable(raw)
		if !ok {
			continue
		}
		if !found || direction*(cmp-chosenCmp) > 0 {
			chosenRaw, chosenCmp, found = raw, cmp, true
		}
	}
	if !found {
		return nil
	}
	return formatExtreme(chosenRaw)
}

// formatExtreme renders a MAX/MIN result: numbers as-is, date-like values
// as a plain UTC calendar date, anything else as its string form.
func formatExtreme(raw any) any {
	if f, ok := asFloat(raw); ok {
		return f
	}
	switch t := raw.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02")
	case string:
		if ts, ok := parseTimestamp(t); ok {
			return ts.UTC().Format("2006-01-02")
		}
		return t
	case nil:
		return nil
	}
	return nil
}

// Sanitize drops payload fields whose value is a non-finite number. Nil
// values survive: an explicit null clears a stale parent field.
func Sanitize(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if f, ok := v.(float64); ok && !isFinite(f) {
			continue
		}
		out[k] = v
	}
	return out
}
