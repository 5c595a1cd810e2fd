// Package alert models the security alerts Argus receives from Wazuh and the
// sources that produce them.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrInvalid is returned when an alert payload is missing, not JSON, or not a JSON object.
	ErrInvalid = errors.New("invalid alert")

	// ErrUpstreamUnavailable is returned when the alert index cannot be queried.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Record is a schema-less Wazuh alert document.
type Record map[string]any

// Alert is a single record together with the identifier it is reported under.
type Alert struct {
	ID     string
	Source string
	Record Record
}

// Source produces alerts for the triage pipeline.
type Source interface {
	Alerts(ctx context.Context) ([]*Alert, error)
}

// New wraps a record, taking its ID from the record's "id" field when present
// and generating a ULID otherwise.
func New(source string, rec Record) *Alert {
	id := stringField(rec, "id")
	if id == "" {
		id = ulid.Make().String()
	}
	return &Alert{ID: id, Source: source, Record: rec}
}

// RuleDescription returns rule.description, or "" if absent.
func (a *Alert) RuleDescription() string {
	return stringField(a.Record, "rule.description")
}

// RuleLevel returns rule.level and whether it was present and numeric.
func (a *Alert) RuleLevel() (int, bool) {
	v, ok := lookup(a.Record, "rule.level")
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// Agent returns agent.name, or "" if absent.
func (a *Alert) Agent() string {
	return stringField(a.Record, "agent.name")
}

func stringField(rec Record, path string) string {
	v, ok := lookup(rec, path)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64, int, bool:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

// lookup walks a dotted path through nested objects.
func lookup(rec Record, path string) (any, bool) {
	var cur any = map[string]any(rec)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
