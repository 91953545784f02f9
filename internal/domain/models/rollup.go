package models

import "strings"

// AggregationType identifies how a rollup output field is computed from
// child records. The set is closed: validation rejects anything else and
// the aggregation computer switches over it exhaustively.
type AggregationType string

const (
	AggregationSum   AggregationType = "SUM"
	AggregationCount AggregationType = "COUNT"
	AggregationMax   AggregationType = "MAX"
	AggregationMin   AggregationType = "MIN"
	AggregationAvg   AggregationType = "AVG"
)

// Valid reports whether t is one of the recognized aggregation types.
func (t AggregationType) Valid() bool {
	switch t {
	case AggregationSum, AggregationCount, AggregationMax, AggregationMin, AggregationAvg:
		return true
	}
	return false
}

// FilterOperator is the comparison operator of a FilterConfig.
type FilterOperator string

const (
	OpEquals    FilterOperator = "equals"
	OpNotEquals FilterOperator = "notEquals"
	OpIn        FilterOperator = "in"
	OpNotIn     FilterOperator = "notIn"
	OpGt        FilterOperator = "gt"
	OpGte       FilterOperator = "gte"
	OpLt        FilterOperator = "lt"
	OpLte       FilterOperator = "lte"
)

// Valid reports whether op is one of the recognized filter operators.
func (op FilterOperator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// DynamicValue names a filter comparison value resolved at evaluation time
// from the current instant instead of being supplied literally.
type DynamicValue string

// DynamicStartOfYear resolves to the first instant of the current calendar
// year, in UTC.
const DynamicStartOfYear DynamicValue = "startOfYear"

// FilterConfig is one predicate applied to a child record.
//
// Fields:
//   - Field: dot-delimited path into the record (e.g. "amount.amountMicros").
//   - Operator: comparison operator.
//   - Value: literal comparison value (scalar or array of scalars).
//   - DynamicValue: tag for a value computed at evaluation time; mutually
//     exclusive with Value.
type FilterConfig struct {
	Field        string         `json:"field"`
	Operator     FilterOperator `json:"operator"`
	Value        any            `json:"value,omitempty"`
	DynamicValue DynamicValue   `json:"dynamicValue,omitempty"`
}

// AggregationConfig declares one output field on the parent record.
//
// ChildField is required for every type except COUNT. CurrencyField is only
// consulted by SUM to produce a money-typed output. Filters narrow the child
// set for this aggregation only, on top of the definition's ChildFilters.
type AggregationConfig struct {
	Type          AggregationType `json:"type"`
	ParentField   string          `json:"parentField"`
	ChildField    string          `json:"childField,omitempty"`
	CurrencyField string          `json:"currencyField,omitempty"`
	Filters       []FilterConfig  `json:"filters,omitempty"`
}

// RollupDefinition is one declarative rule mapping a child object type to a
// set of aggregate fields on a parent object type. Children are scoped by
// RelationField: a child belongs to the parent whose id that field holds.
type RollupDefinition struct {
	ParentObject  string              `json:"parentObject"`
	ChildObject   string              `json:"childObject"`
	RelationField string              `json:"relationField"`
	ChildFilters  []FilterConfig      `json:"childFilters,omitempty"`
	Aggregations  []AggregationConfig `json:"aggregations"`
}

// MoneyValue is the output shape of SUM aggregations: a currency-tagged
// integer-microunit amount. Keeping the amount and currency together avoids
// silently mixing currencies in a bare float.
type MoneyValue struct {
	AmountMicros int64  `json:"amountMicros"`
	CurrencyCode string `json:"currencyCode"`
}

// Record is an opaque child or parent record fetched from the record store.
// It has no fixed schema beyond containing whatever fields the configured
// rollups reference.
type Record map[string]any

// Value resolves a dot-delimited path against the record, traversing nested
// maps. A missing key or a non-map intermediate at any level yields nil.
func (r Record) Value(path string) any {
	if !strings.Contains(path, ".") {
		return r[path]
	}
	var current any = map[string]any(r)
	for _, key := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			current = m[key]
		case Record:
			current = m[key]
		default:
			return nil
		}
	}
	return current
}
