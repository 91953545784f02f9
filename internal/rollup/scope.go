package rollup

import (
	"strings"

	"github.com/fundpulse/rollupd/internal/domain/models"
)

// Scope is the outcome of inspecting a trigger payload: either recompute
// everything, or only the parent ids harvested per relation field.
type Scope struct {
	FullRebuild bool
	IDs         map[string]map[string]struct{}
}

// IsFullRebuild reports whether the trigger payload explicitly requests a
// recompute-all, or originates from a scheduled (cron) invocation rather
// than a single-record event.
func IsFullRebuild(trigger any) bool {
	m, ok := trigger.(map[string]any)
	if !ok {
		return false
	}
	if m["recalculateAll"] == true || m["fullRebuild"] == true {
		return true
	}
	switch t := m["trigger"].(type) {
	case string:
		return t == "cron"
	case map[string]any:
		return t["type"] == "cron"
	}
	return false
}

// CollectRelationIDs recursively scans an arbitrary trigger payload and
// gathers every non-blank string value found under a key matching the
// relation field name, at any nesting depth. Callers rely on this leniency:
// the trigger has no fixed schema.
func CollectRelationIDs(trigger any, relationField string) map[string]struct{} {
	ids := make(map[string]struct{})
	collectByKey(trigger, relationField, ids)
	return ids
}

func collectByKey(node any, key string, out map[string]struct{}) {
	switch v := node.(type) {
	case []any:
		for _, entry := range v {
			collectByKey(entry, key, out)
		}
	case map[string]any:
		for k, entry := range v {
			if k == key {
				if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
					out[s] = struct{}{}
					continue
				}
			}
			collectByKey(entry, key, out)
		}
	}
}

// ResolveScope determines the execution scope for a run: full rebuild, or a
// per-relation-field candidate parent-id set harvested from the trigger. A
// relation field with an empty set in targeted mode means its definitions
// are skipped, never silently promoted to a full rebuild.
func ResolveScope(trigger any, defs []models.RollupDefinition) Scope {
	scope := Scope{
		FullRebuild: IsFullRebuild(trigger),
		IDs:         make(map[string]map[string]struct{}),
	}
	for _, def := range defs {
		if _, seen := scope.IDs[def.RelationField]; seen {
			continue
		}
		scope.IDs[def.RelationField] = CollectRelationIDs(trigger, def.RelationField)
	}
	return scope
}
