package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/linnemanlabs/argus/internal/alert"
)

// debugSource appends every alert it passes through to a file. Write
// failures are reported to warn.
type debugSource struct {
	src  alert.Source
	path string
	warn io.Writer
}

func (d *debugSource) Alerts(ctx context.Context) ([]*alert.Alert, error) {
	alerts, err := d.src.Alerts(ctx)
	if err != nil {
		return nil, err
	}
	if err := appendDebugLog(d.path, time.Now(), alerts); err != nil {
		// the debug log never blocks triage
		fmt.Fprintln(d.warn, "warning:", err)
	}
	return alerts, nil
}

func appendDebugLog(path string, now time.Time, alerts []*alert.Alert) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: path is from operator config
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, al := range alerts {
		body, err := json.MarshalIndent(al.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("encode alert %s: %w", al.ID, err)
		}
		if _, err := fmt.Fprintf(f, "%s received alert %s (%s): %s\n", now.UTC().Format(time.RFC3339), al.ID, al.Source, body); err != nil {
			return fmt.Errorf("write debug log: %w", err)
		}
	}
	return nil
}
