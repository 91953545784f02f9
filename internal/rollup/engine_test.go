package rollup

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/fundpulse/rollupd/internal/domain/models"
)

// fakeClient is an in-memory DataClient backed by per-object record sets.
type fakeClient struct {
	mu      sync.Mutex
	records map[string][]models.Record

	updates    []updateCall
	updateErr  map[string]error
	listErr    error
	listCalls  int
	parentArgs [][]string
}

type updateCall struct {
	object  string
	id      string
	payload map[string]any
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		records:   make(map[string][]models.Record),
		updateErr: make(map[string]error),
	}
}

func (f *fakeClient) ListAll(ctx context.Context, object string, filter map[string]string) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records[object], nil
}

func (f *fakeClient) ListAllForParents(ctx context.Context, object, relationField string, parentIDs []string) (map[string][]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.parentArgs = append(f.parentArgs, parentIDs)

	out := make(map[string][]models.Record, len(parentIDs))
	for _, id := range parentIDs {
		out[id] = nil
		for _, rec := range f.records[object] {
			if rel, _ := rec.Value(relationField).(string); rel == id {
				out[id] = append(out[id], rec)
			}
		}
	}
	return out, nil
}

func (f *fakeClient) Update(ctx context.Context, object, id string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.updates = append(f.updates, updateCall{object: object, id: id, payload: payload})
	return nil
}

type fakeRecorder struct {
	results []models.RunResult
	err     error
}

func (f *fakeRecorder) InsertRun(result models.RunResult) error {
	f.results = append(f.results, result)
	return f.err
}

func testClock() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func countDefinition() models.RollupDefinition {
	return models.RollupDefinition{
		ParentObject:  "person",
		ChildObject:   "gift",
		RelationField: "donorId",
		Aggregations: []models.AggregationConfig{
			{Type: models.AggregationCount, ParentField: "lifetimeGiftCount"},
		},
	}
}

func overrideFor(t *testing.T, defs ...models.RollupDefinition) string {
	t.Helper()
	out := "["
	for i, def := range defs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"parentObject":%q,"childObject":%q,"relationField":%q,"aggregations":[`,
			def.ParentObject, def.ChildObject, def.RelationField)
		for j, agg := range def.Aggregations {
			if j > 0 {
				out += ","
			}
			out += fmt.Sprintf(`{"type":%q,"parentField":%q`, agg.Type, agg.ParentField)
			if agg.ChildField != "" {
				out += fmt.Sprintf(`,"childField":%q`, agg.ChildField)
			}
			if agg.CurrencyField != "" {
				out += fmt.Sprintf(`,"currencyField":%q`, agg.CurrencyField)
			}
			out += "}"
		}
		out += "]}"
	}
	return out + "]"
}

func TestRun_NoopWithoutAPIKey(t *testing.T) {
	client := newFakeClient()
	engine := NewEngine(client, nil, Options{Clock: testClock})

	result := engine.Run(context.Background(), map[string]any{"donorId": "person-1"})
	if result.Status != models.StatusNoop || result.Reason != "API key not configured" {
		t.Fatalf("result = %+v, want noop without API key", result)
	}
	if client.listCalls != 0 {
		t.Fatalf("no network access expected, got %d list calls", client.listCalls)
	}
}

func TestRun_NoopWithEmptyConfig(t *testing.T) {
	engine := NewEngine(newFakeClient(), nil, Options{APIKey: "k", ConfigOverride: "[]", Clock: testClock})

	result := engine.Run(context.Background(), nil)
	if result.Status != models.StatusNoop || result.Reason != "no rollup definitions configured" {
		t.Fatalf("result = %+v, want noop for empty configuration", result)
	}
}

func TestRun_ErrorOnInvalidConfig(t *testing.T) {
	engine := NewEngine(newFakeClient(), nil, Options{APIKey: "k", ConfigOverride: "{bad", Clock: testClock})

	result := engine.Run(context.Background(), nil)
	if result.Status != models.StatusError {
		t.Fatalf("result = %+v, want error for malformed configuration", result)
	}
}

func TestRun_TargetedUpdatesOnlyReferencedParents(t *testing.T) {
	client := newFakeClient()
	client.records["gift"] = []models.Record{
		{"id": "g-1", "donorId": "person-1"},
		{"id": "g-2", "donorId": "person-1"},
		{"id": "g-3", "donorId": "person-2"},
	}
	engine := NewEngine(client, nil, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition()),
		Clock:          testClock,
	})

	trigger := map[string]any{"record": map[string]any{"donorId": "person-1"}}
	result := engine.Run(context.Background(), trigger)

	if result.Status != models.StatusOK {
		t.Fatalf("result = %+v, want ok", result)
	}
	if result.Totals == nil || result.Totals.Processed != 1 || result.Totals.Updated != 1 {
		t.Fatalf("totals = %+v, want processed=1 updated=1", result.Totals)
	}
	if len(client.updates) != 1 {
		t.Fatalf("updates = %+v, want exactly one", client.updates)
	}
	got := client.updates[0]
	if got.object != "person" || got.id != "person-1" {
		t.Fatalf("update target = %s/%s, want person/person-1", got.object, got.id)
	}
	if !reflect.DeepEqual(got.payload, map[string]any{"lifetimeGiftCount": 2}) {
		t.Fatalf("payload = %v, want lifetimeGiftCount=2", got.payload)
	}
	if len(result.Details) != 1 || result.Details[0].Mode != models.ModeTargeted {
		t.Fatalf("details = %+v, want one targeted summary", result.Details)
	}
}

func TestRun_TargetedNoopWhenPayloadHasNoIDs(t *testing.T) {
	client := newFakeClient()
	engine := NewEngine(client, nil, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition()),
		Clock:          testClock,
	})

	result := engine.Run(context.Background(), map[string]any{"record": map[string]any{"id": "g-1"}})
	if result.Status != models.StatusNoop || result.Reason != "no matching relation ids found in payload" {
		t.Fatalf("result = %+v, want targeted noop", result)
	}
	if client.listCalls != 0 {
		t.Fatalf("definitions without ids must be skipped, got %d list calls", client.listCalls)
	}
}

func TestRun_FullRebuildCoversEveryParent(t *testing.T) {
	client := newFakeClient()
	client.records["gift"] = []models.Record{
		{"id": "g-1", "donorId": "person-2"},
		{"id": "g-2", "donorId": "person-1"},
		{"id": "g-3", "donorId": ""},
		{"id": "g-4"},
	}
	engine := NewEngine(client, nil, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition()),
		Clock:          testClock,
	})

	result := engine.Run(context.Background(), map[string]any{"recalculateAll": true})
	if result.Status != models.StatusOK {
		t.Fatalf("result = %+v, want ok", result)
	}
	if result.Totals.Processed != 2 || result.Totals.Updated != 2 {
		t.Fatalf("totals = %+v, want processed=2 updated=2", result.Totals)
	}
	if len(client.updates) != 2 {
		t.Fatalf("updates = %+v, want two", client.updates)
	}
	// Updates apply in sorted parent-id order.
	if client.updates[0].id != "person-1" || client.updates[1].id != "person-2" {
		t.Fatalf("update order = %v, want person-1 then person-2", client.updates)
	}
	if result.Details[0].Mode != models.ModeFullRebuild {
		t.Fatalf("mode = %q, want %q", result.Details[0].Mode, models.ModeFullRebuild)
	}
}

func TestRun_FullRebuildIsIdempotent(t *testing.T) {
	client := newFakeClient()
	client.records["gift"] = []models.Record{
		{"id": "g-1", "donorId": "person-1"},
		{"id": "g-2", "donorId": "person-2"},
	}
	engine := NewEngine(client, nil, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition()),
		Clock:          testClock,
	})

	first := engine.Run(context.Background(), map[string]any{"fullRebuild": true})
	second := engine.Run(context.Background(), map[string]any{"fullRebuild": true})

	if first.Status != models.StatusOK || second.Status != models.StatusOK {
		t.Fatalf("runs = %+v / %+v, want both ok", first, second)
	}
	if len(client.updates) != 4 {
		t.Fatalf("updates = %d, want 4", len(client.updates))
	}
	for i := 0; i < 2; i++ {
		a, b := client.updates[i], client.updates[i+2]
		if a.id != b.id || !reflect.DeepEqual(a.payload, b.payload) {
			t.Fatalf("repeated rebuild diverged: %v vs %v", a, b)
		}
	}
}

func TestRun_UpdateFailureIsIsolated(t *testing.T) {
	client := newFakeClient()
	client.records["gift"] = []models.Record{
		{"id": "g-1", "donorId": "person-1"},
		{"id": "g-2", "donorId": "person-2"},
		{"id": "g-3", "donorId": "person-3"},
	}
	client.updateErr["person-2"] = errors.New("422 validation failed")

	engine := NewEngine(client, nil, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition()),
		Clock:          testClock,
	})

	result := engine.Run(context.Background(), map[string]any{"recalculateAll": true})
	if result.Status != models.StatusOK {
		t.Fatalf("result = %+v, a single update failure must not fail the run", result)
	}
	if result.Totals.Processed != 3 || result.Totals.Updated != 2 {
		t.Fatalf("totals = %+v, want processed=3 updated=2", result.Totals)
	}
	if len(client.updates) != 2 {
		t.Fatalf("updates = %+v, want the two surviving parents", client.updates)
	}
}

func TestRun_FetchFailureAbortsRun(t *testing.T) {
	client := newFakeClient()
	client.listErr = errors.New("503 upstream unavailable")
	recorder := &fakeRecorder{}

	engine := NewEngine(client, recorder, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition()),
		Clock:          testClock,
	})

	result := engine.Run(context.Background(), map[string]any{"recalculateAll": true})
	if result.Status != models.StatusError {
		t.Fatalf("result = %+v, want error on fetch failure", result)
	}
	if len(recorder.results) != 1 || recorder.results[0].Status != models.StatusError {
		t.Fatalf("recorder = %+v, error runs must still be recorded", recorder.results)
	}
}

func TestRun_RecorderFailureDoesNotFailRun(t *testing.T) {
	client := newFakeClient()
	client.records["gift"] = []models.Record{{"id": "g-1", "donorId": "person-1"}}
	recorder := &fakeRecorder{err: errors.New("connection refused")}

	engine := NewEngine(client, recorder, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition()),
		Clock:          testClock,
	})

	result := engine.Run(context.Background(), map[string]any{"recalculateAll": true})
	if result.Status != models.StatusOK {
		t.Fatalf("result = %+v, recorder failures are best-effort", result)
	}
}

func TestRun_PerRelationFieldSkipSummaries(t *testing.T) {
	client := newFakeClient()
	client.records["gift"] = []models.Record{
		{"id": "g-1", "donorId": "person-1"},
		{"id": "g-2", "companyId": "company-1"},
	}
	companyDef := models.RollupDefinition{
		ParentObject:  "company",
		ChildObject:   "gift",
		RelationField: "companyId",
		Aggregations: []models.AggregationConfig{
			{Type: models.AggregationCount, ParentField: "giftCount"},
		},
	}
	engine := NewEngine(client, nil, Options{
		APIKey:         "k",
		ConfigOverride: overrideFor(t, countDefinition(), companyDef),
		Clock:          testClock,
	})

	result := engine.Run(context.Background(), map[string]any{"record": map[string]any{"donorId": "person-1"}})
	if result.Status != models.StatusOK {
		t.Fatalf("result = %+v, want ok", result)
	}
	if len(result.Details) != 2 {
		t.Fatalf("details = %+v, want a summary per definition", result.Details)
	}
	var company models.SummaryItem
	for _, item := range result.Details {
		if item.ParentObject == "company" {
			company = item
		}
	}
	if company.Skipped != "no companyId values found in payload" {
		t.Fatalf("company summary = %+v, want skipped marker", company)
	}
	if company.Processed != 0 || company.Updated != 0 {
		t.Fatalf("skipped definition must not process records: %+v", company)
	}
}
