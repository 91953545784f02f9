package rollup

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fundpulse/rollupd/internal/domain/models"
)

// ConfigError describes a malformed or invalid rollup configuration. It is
// fatal: the engine aborts before any network access.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks a candidate list of rollup definitions against the schema
// invariants. Errors name the offending definition, aggregation, or filter
// index and the missing or invalid attribute. Validation stops at the first
// structural defect of each definition.
func Validate(defs []models.RollupDefinition) error {
	for i, def := range defs {
		if strings.TrimSpace(def.ParentObject) == "" {
			return configErrorf("definition %d missing parentObject", i)
		}
		if strings.TrimSpace(def.ChildObject) == "" {
			return configErrorf("definition %d missing childObject", i)
		}
		if strings.TrimSpace(def.RelationField) == "" {
			return configErrorf("definition %d missing relationField", i)
		}
		if len(def.Aggregations) == 0 {
			return configErrorf("definition %d must declare at least one aggregation", i)
		}

		filters := append([]models.FilterConfig(nil), def.ChildFilters...)
		for j, agg := range def.Aggregations {
			if !agg.Type.Valid() {
				return configErrorf("aggregation %d in definition %d has unsupported type %q", j, i, agg.Type)
			}
			if strings.TrimSpace(agg.ParentField) == "" {
				return configErrorf("aggregation %d in definition %d missing parentField", j, i)
			}
			if agg.Type != models.AggregationCount && agg.ChildField == "" {
				return configErrorf("aggregation %d in definition %d with type %s requires childField", j, i, agg.Type)
			}
			filters = append(filters, agg.Filters...)
		}

		for j, f := range filters {
			if strings.TrimSpace(f.Field) == "" {
				return configErrorf("filter %d in definition %d missing field", j, i)
			}
			if !f.Operator.Valid() {
				return configErrorf("filter %d in definition %d has unsupported operator %q", j, i, f.Operator)
			}
			if f.DynamicValue != "" && f.DynamicValue != models.DynamicStartOfYear {
				return configErrorf("filter %d in definition %d has unsupported dynamicValue %q", j, i, f.DynamicValue)
			}
			if f.DynamicValue != "" && f.Value != nil {
				return configErrorf("filter %d in definition %d declares both value and dynamicValue", j, i)
			}
		}
	}
	return nil
}

// Resolve returns the effective rollup configuration. A non-empty override
// (serialized JSON, typically from the ROLLUP_CONFIG environment variable)
// takes precedence over the built-in defaults; an override that fails to
// parse or validate aborts the run.
func Resolve(override string) ([]models.RollupDefinition, error) {
	if strings.TrimSpace(override) != "" {
		var defs []models.RollupDefinition
		if err := json.Unmarshal([]byte(override), &defs); err != nil {
			return nil, configErrorf("unable to parse rollup configuration override: %v", err)
		}
		if err := Validate(defs); err != nil {
			return nil, err
		}
		return defs, nil
	}

	defs := DefaultDefinitions()
	if err := Validate(defs); err != nil {
		return nil, err
	}
	return defs, nil
}
