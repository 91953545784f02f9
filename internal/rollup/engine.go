// Package rollup implements the rollup computation engine: configuration
// validation, filter evaluation, aggregation, trigger scope resolution, and
// the orchestration of one engine run against the record store.
package rollup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fundpulse/rollupd/internal/domain/models"
	"github.com/fundpulse/rollupd/internal/logger"
)

// DataClient is the record-store surface the engine needs. Implemented by
// crm.Client; tests substitute fakes.
type DataClient interface {
	ListAll(ctx context.Context, object string, filter map[string]string) ([]models.Record, error)
	ListAllForParents(ctx context.Context, object, relationField string, parentIDs []string) (map[string][]models.Record, error)
	Update(ctx context.Context, object, id string, payload map[string]any) error
}

// RunRecorder persists execution summaries. Recording is best-effort: a
// recorder failure never fails the run.
type RunRecorder interface {
	InsertRun(result models.RunResult) error
}

// Options are the explicit inputs of an engine; the engine reads no
// environment of its own.
type Options struct {
	// APIKey for the record store. Empty means the rollup feature is
	// disabled: every run ends as a clean noop.
	APIKey string
	// ConfigOverride is a serialized rollup configuration taking precedence
	// over the built-in defaults when non-empty.
	ConfigOverride string
	// Clock supplies "now" for dynamic filter values; nil means time.Now.
	Clock func() time.Time
}

// Engine recomputes rollup fields for the parent records reachable from a
// trigger payload, or for every parent on a full rebuild.
type Engine struct {
	client   DataClient
	recorder RunRecorder
	opts     Options
}

// NewEngine builds an engine. recorder may be nil when run logging is
// disabled.
func NewEngine(client DataClient, recorder RunRecorder, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{client: client, recorder: recorder, opts: opts}
}

// Run executes one invocation for the given trigger payload. It never
// returns an unhandled fault: unexpected errors are reported as a result
// with status "error".
func (e *Engine) Run(ctx context.Context, trigger any) (result models.RunResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.L().Error().Interface("panic", r).Msg("rollup run panicked")
			result = models.RunResult{Status: models.StatusError, Message: fmt.Sprintf("unexpected failure: %v", r)}
		}
		result.TookMs = time.Since(start).Milliseconds()
		if e.recorder != nil {
			if err := e.recorder.InsertRun(result); err != nil {
				logger.L().Warn().Err(err).Msg("failed to record run summary")
			}
		}
	}()

	defs, err := Resolve(e.opts.ConfigOverride)
	if err != nil {
		logger.L().Error().Err(err).Msg("rollup configuration invalid")
		return models.RunResult{Status: models.StatusError, Message: err.Error()}
	}
	if len(defs) == 0 {
		return models.RunResult{Status: models.StatusNoop, Reason: "no rollup definitions configured"}
	}

	if e.opts.APIKey == "" {
		logger.L().Warn().Msg("skipping execution because no API key is configured")
		return models.RunResult{Status: models.StatusNoop, Reason: "API key not configured"}
	}

	scope := ResolveScope(trigger, defs)
	now := e.opts.Clock()
	summaries := make([]models.SummaryItem, 0, len(defs))

	for _, def := range defs {
		item, err := e.runDefinition(ctx, def, scope, now)
		if err != nil {
			logger.L().Error().Err(err).Str("parent", def.ParentObject).Msg("rollup definition failed")
			return models.RunResult{Status: models.StatusError, Message: err.Error()}
		}
		summaries = append(summaries, item)
	}

	totals := models.RunTotals{}
	for _, item := range summaries {
		totals.Processed += item.Processed
		totals.Updated += item.Updated
	}

	if !scope.FullRebuild && totals.Processed == 0 {
		return models.RunResult{Status: models.StatusNoop, Reason: "no matching relation ids found in payload"}
	}

	mode := models.ModeTargeted
	if scope.FullRebuild {
		mode = models.ModeFullRebuild
	}
	logger.L().Info().
		Str("mode", mode).
		Int("processed", totals.Processed).
		Int("updated", totals.Updated).
		Msg("rollup run completed")

	return models.RunResult{
		Status:  models.StatusOK,
		Totals:  &totals,
		Details: summaries,
	}
}

// runDefinition executes one rollup definition: fetch the relation-grouped
// children, compute aggregates per parent, and apply updates with
// per-record failure isolation. A fetch failure aborts the run; an update
// failure only excludes that parent from the updated count.
func (e *Engine) runDefinition(ctx context.Context, def models.RollupDefinition, scope Scope, now time.Time) (models.SummaryItem, error) {
	item := models.SummaryItem{
		ParentObject:  def.ParentObject,
		RelationField: def.RelationField,
		Mode:          models.ModeTargeted,
	}
	if scope.FullRebuild {
		item.Mode = models.ModeFullRebuild
	}

	var index map[string][]models.Record
	if scope.FullRebuild {
		records, err := e.client.ListAll(ctx, def.ChildObject, nil)
		if err != nil {
			return item, fmt.Errorf("fetch %s records: %w", def.ChildObject, err)
		}
		index = groupByRelation(records, def.RelationField)
	} else {
		targets := scope.IDs[def.RelationField]
		if len(targets) == 0 {
			item.Skipped = fmt.Sprintf("no %s values found in payload", def.RelationField)
			return item, nil
		}
		ids := make([]string, 0, len(targets))
		for id := range targets {
			ids = append(ids, id)
		}
		var err error
		index, err = e.client.ListAllForParents(ctx, def.ChildObject, def.RelationField, ids)
		if err != nil {
			return item, fmt.Errorf("fetch %s records: %w", def.ChildObject, err)
		}
	}
	item.Processed = len(index)

	parentIDs := make([]string, 0, len(index))
	for id := range index {
		parentIDs = append(parentIDs, id)
	}
	sort.Strings(parentIDs)

	for _, parentID := range parentIDs {
		children := index[parentID]
		payload := Compute(def, children, now)
		if len(payload) == 0 {
			continue
		}
		logger.L().Debug().
			Str("parent", def.ParentObject).
			Str("id", parentID).
			Int("children", len(children)).
			Interface("payload", payload).
			Msg("computed aggregates")

		if err := e.client.Update(ctx, def.ParentObject, parentID, payload); err != nil {
			logger.L().Warn().Err(err).
				Str("parent", def.ParentObject).
				Str("id", parentID).
				Msg("failed to update parent record")
			continue
		}
		item.Updated++
	}

	return item, nil
}

// groupByRelation buckets records by the string value of the relation
// field; records with a blank or non-string relation are dropped.
func groupByRelation(records []models.Record, relationField string) map[string][]models.Record {
	grouped := make(map[string][]models.Record)
	for _, rec := range records {
		id, ok := rec.Value(relationField).(string)
		if !ok || id == "" {
			continue
		}
		grouped[id] = append(grouped[id], rec)
	}
	return grouped
}
