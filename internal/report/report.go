// Package report implements triage.Sink for terminal output and structured logs.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/argus/internal/triage"
)

// Console writes the analysis and a recommended action to Out, and failures
// to Err. It is the output of the pipe and pull commands.
type Console struct {
	Out io.Writer
	Err io.Writer
}

// NewConsole returns a Console writing to out and errOut.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{Out: out, Err: errOut}
}

// Name implements triage.Sink.
func (c *Console) Name() string { return "console" }

// Report implements triage.Sink.
func (c *Console) Report(_ context.Context, o *triage.Outcome) error {
	if o.Failed() {
		_, err := fmt.Fprintf(c.Err, "ERROR: analysis failed for alert %s (%s): %s\n", o.AlertID, o.ErrorKind, o.Error)
		return err
	}

	if _, err := fmt.Fprintf(c.Out, "%s Analysis:\n%s\n", displayName(o.Provider), o.Analysis); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.Out, ActionLine(o))
	return err
}

// ActionLine is the single recommended-action line for a successful outcome.
func ActionLine(o *triage.Outcome) string {
	switch o.Verdict {
	case triage.VerdictEscalate:
		return fmt.Sprintf("ACTION: IMMEDIATE ESCALATION REQUIRED for alert %s. Sending high-priority notification.", o.AlertID)
	case triage.VerdictMonitor:
		return "ACTION: Logged for review. No immediate action required."
	default:
		return fmt.Sprintf("ACTION: Analysis inconclusive for alert %s. Manual review recommended.", o.AlertID)
	}
}

func displayName(provider string) string {
	if provider == "" {
		return "Model"
	}
	return strings.ToUpper(provider[:1]) + provider[1:]
}

// Log emits one structured log line per outcome: warn for escalations,
// error for failures, info otherwise.
type Log struct {
	logger log.Logger
}

// NewLog returns a Log sink. A nil logger discards output.
func NewLog(logger log.Logger) *Log {
	if logger == nil {
		logger = log.Nop()
	}
	return &Log{logger: logger}
}

// Name implements triage.Sink.
func (l *Log) Name() string { return "log" }

// Report implements triage.Sink.
func (l *Log) Report(ctx context.Context, o *triage.Outcome) error {
	L := l.logger.With(
		"alert_id", o.AlertID,
		"source", o.Source,
		"rule", o.RuleDescription,
		"rule_level", o.RuleLevel,
		"agent", o.Agent,
		"provider", o.Provider,
		"model", o.Model,
		"duration", o.Duration,
	)

	switch levelFor(o) {
	case levelError:
		err := o.Err
		if err == nil {
			err = errors.New(o.Error)
		}
		L.Error(ctx, err, "triage failed", "error_kind", o.ErrorKind)
	case levelWarn:
		L.Warn(ctx, ActionLine(o), "verdict", o.Verdict)
	default:
		L.Info(ctx, ActionLine(o), "verdict", o.Verdict)
	}
	return nil
}

type level int

const (
	levelInfo level = iota
	levelWarn
	levelError
)

func levelFor(o *triage.Outcome) level {
	switch {
	case o.Failed():
		return levelError
	case o.Verdict == triage.VerdictEscalate:
		return levelWarn
	default:
		return levelInfo
	}
}
