// Package crm talks to the record store's REST API: paginated listing,
// partial updates, retry with linear backoff, and bounded-concurrency
// fan-out when the parent-id scope is known.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/fundpulse/rollupd/internal/domain/models"
	"github.com/fundpulse/rollupd/internal/logger"
)

const (
	defaultPageSize        = 200
	maxAttempts            = 3
	parentFetchConcurrency = 5
)

// retryBaseDelay is a package variable so tests can shrink it.
var retryBaseDelay = 300 * time.Millisecond

// resourcePlurals lists the known-irregular resource names; everything else
// gets a plain "s" suffix.
var resourcePlurals = map[string]string{
	"person":      "people",
	"gift":        "gifts",
	"company":     "companies",
	"opportunity": "opportunities",
}

func resourceName(object string) string {
	if plural, ok := resourcePlurals[object]; ok {
		return plural
	}
	return object + "s"
}

// APIError is a non-success response from the record store, surfaced after
// retries (if any) were exhausted.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if body == "" {
		body = "no body returned"
	}
	return fmt.Sprintf("request failed (%d): %s", e.Status, body)
}

// Retriable reports whether the status is worth another attempt.
func (e *APIError) Retriable() bool {
	switch e.Status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client is an HTTP client for the record store with bearer-token auth.
// Safe for concurrent use.
type Client struct {
	apiKey   string
	baseURL  string
	pageSize int
	httpc    *http.Client
}

// NewClient builds a client for the given base URL. A pageSize of 0 uses
// the default (200).
func NewClient(apiKey, baseURL string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// linearBackoff waits attempt*retryBaseDelay before the next try.
func linearBackoff() retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * retryBaseDelay, false
	})
}

// request performs one API call with retry on transient statuses and
// returns the decoded JSON body (nil for 204 or empty responses).
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	var raw []byte
	var status int
	err := retry.Do(ctx, retry.WithMaxRetries(maxAttempts-1, linearBackoff()), func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode, Body: string(data)}
			if apiErr.Retriable() {
				logger.L().Warn().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg("retriable api response")
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		raw = data
		status = resp.StatusCode
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status == http.StatusNoContent || len(raw) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse JSON response from %s: %w", endpoint, err)
	}
	return decoded, nil
}

// extractRecords tolerates the envelope shapes used across API conventions:
// the record list may sit under data.<plural>, data.<singular>, or
// data.findMany<Plural>. Anything unrecognized yields an empty list.
func extractRecords(body any, resource string) []models.Record {
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		return nil
	}

	keys := []string{resource, strings.TrimSuffix(resource, "s")}
	if resource != "" {
		keys = append(keys, "findMany"+strings.ToUpper(resource[:1])+resource[1:])
	}
	for _, key := range keys {
		items, ok := data[key].([]any)
		if !ok {
			continue
		}
		records := make([]models.Record, 0, len(items))
		for _, item := range items {
			if rec, ok := item.(map[string]any); ok {
				records = append(records, models.Record(rec))
			}
		}
		return records
	}
	return nil
}

// extractPageInfo finds the page-info block at the top level or nested
// under data.
func extractPageInfo(body any) map[string]any {
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	if pi, ok := m["pageInfo"].(map[string]any); ok {
		return pi
	}
	if data, ok := m["data"].(map[string]any); ok {
		if pi, ok := data["pageInfo"].(map[string]any); ok {
			return pi
		}
	}
	return nil
}

type page struct {
	items      []models.Record
	hasNext    bool
	nextCursor string
}

func (c *Client) listPage(ctx context.Context, resource string, filter map[string]string, cursor string) (page, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		query.Set("starting_after", cursor)
	}
	for field, value := range filter {
		query.Set(fmt.Sprintf("filter[%s]", field), value)
	}

	body, err := c.request(ctx, http.MethodGet, resource, query, nil)
	if err != nil {
		return page{}, err
	}

	p := page{items: extractRecords(body, resource)}
	pi := extractPageInfo(body)
	if pi == nil {
		return p, nil
	}

	if next, ok := pi["hasNextPage"].(bool); ok && next {
		p.hasNext = true
	}
	if end, ok := pi["endCursor"].(string); ok && end != "" {
		p.hasNext = true
		p.nextCursor = end
	} else if next, ok := pi["nextCursor"].(string); ok && next != "" {
		p.hasNext = true
		p.nextCursor = next
	}
	return p, nil
}

// ListAll fetches every record of an object type, following the page
// cursor until the server reports no further page. The optional filter is
// applied server-side.
func (c *Client) ListAll(ctx context.Context, object string, filter map[string]string) ([]models.Record, error) {
	resource := resourceName(object)
	var all []models.Record
	cursor := ""

	for {
		p, err := c.listPage(ctx, resource, filter, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, p.items...)
		if !p.hasNext || p.nextCursor == "" {
			return all, nil
		}
		cursor = p.nextCursor
	}
}

// ListAllForParents fetches the children of each parent id with a bounded
// number of in-flight fetches, filtering server-side by relation field and
// re-checking the relation client-side against lenient server filters.
// Every requested parent id appears in the result, with an empty list when
// it has no children, so downstream aggregation always emits an update.
func (c *Client) ListAllForParents(ctx context.Context, object, relationField string, parentIDs []string) (map[string][]models.Record, error) {
	ids := append([]string(nil), parentIDs...)
	sort.Strings(ids)

	results := make([][]models.Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, parentFetchConcurrency)

	for i, id := range ids {
		idx, parentID := i, id
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := c.ListAll(gctx, object, map[string]string{relationField: parentID})
			if err != nil {
				return fmt.Errorf("list %s for %s=%s: %w", object, relationField, parentID, err)
			}
			matched := make([]models.Record, 0, len(records))
			for _, rec := range records {
				if v, ok := rec.Value(relationField).(string); ok && v == parentID {
					matched = append(matched, rec)
				}
			}
			results[idx] = matched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]models.Record, len(ids))
	for i, id := range ids {
		if results[i] == nil {
			out[id] = []models.Record{}
			continue
		}
		out[id] = results[i]
	}
	return out, nil
}

// Update issues a partial update for a single record. Non-success responses
// surface as an APIError.
func (c *Client) Update(ctx context.Context, object, id string, payload map[string]any) error {
	resource := resourceName(object)
	_, err := c.request(ctx, http.MethodPatch, resource+"/"+id, nil, payload)
	return err
}
