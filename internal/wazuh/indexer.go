// Package wazuh queries the Wazuh indexer (OpenSearch/Elasticsearch API) for
// recent high-severity alerts.
package wazuh

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/argus/internal/alert"
)

// SourceIndexer identifies alerts fetched from the indexer.
const SourceIndexer = "indexer"

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 16 << 20
)

var tracer = otel.Tracer("github.com/linnemanlabs/argus/internal/wazuh")

// Options configures an Indexer.
type Options struct {
	URL                string
	IndexPattern       string
	SeverityField      string
	MinSeverity        int
	SortField          string
	Size               int
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Indexer is a pull-mode alert.Source backed by the indexer _search API.
type Indexer struct {
	opts       Options
	httpClient *http.Client
}

// NewIndexer creates an indexer source.
func NewIndexer(opts Options) *Indexer {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // G402: opt-in for self-signed indexer certs
	}

	return &Indexer{
		opts: opts,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string       `json:"_id"`
			Index  string       `json:"_index"`
			Source alert.Record `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query builds the _search body: a range filter on the severity field,
// newest first, capped at Size hits.
func (ix *Indexer) Query() map[string]any {
	return map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				ix.opts.SeverityField: map[string]any{"gte": ix.opts.MinSeverity},
			},
		},
		"sort": []map[string]any{
			{ix.opts.SortField: map[string]any{"order": "desc"}},
		},
		"size": ix.opts.Size,
	}
}

// Alerts fetches the most recent alerts at or above the severity threshold.
func (ix *Indexer) Alerts(ctx context.Context) ([]*alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "wazuh.search", trace.WithAttributes(
		attribute.String("db.system", "opensearch"),
		attribute.String("argus.index_pattern", ix.opts.IndexPattern),
		attribute.Int("argus.search.size", ix.opts.Size),
	))
	defer span.End()

	alerts, err := ix.search(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("argus.search.hits", len(alerts)))
	return alerts, nil
}

func (ix *Indexer) search(ctx context.Context) ([]*alert.Alert, error) {
	u, err := url.Parse(ix.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid indexer url: %w", alert.ErrUpstreamUnavailable, err)
	}
	u.Path = path.Join(u.Path, ix.opts.IndexPattern, "_search")

	body, err := json.Marshal(ix.Query())
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", alert.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.opts.Username != "" {
		req.SetBasicAuth(ix.opts.Username, ix.opts.Password)
	}

	resp, err := ix.httpClient.Do(req) //nolint:gosec // G704: indexer URL is from trusted config
	if err != nil {
		return nil, fmt.Errorf("%w: %w", alert.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", alert.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: indexer returned %d: %s", alert.ErrUpstreamUnavailable, resp.StatusCode, truncate(string(respBody), 512))
	}

	var sr searchResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %w", alert.ErrInvalid, err)
	}

	out := make([]*alert.Alert, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		if h.Source == nil {
			continue
		}
		a := alert.New(SourceIndexer, h.Source)
		if h.ID != "" {
			a.ID = h.ID
		}
		out = append(out, a)
	}
	return out, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
