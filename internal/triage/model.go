package triage

import "time"

// Status tracks whether a triage produced an analysis.
type Status string

const (
	// StatusSuccess means the provider returned an analysis and it was classified.
	StatusSuccess Status = "success"

	// StatusError means the run stopped before classification.
	StatusError Status = "error"
)

// Outcome is the result of one pipeline run for one alert. Verdict is only
// set when Status is StatusSuccess.
type Outcome struct {
	AlertID         string    `json:"alert_id"`
	Source          string    `json:"source"`
	RuleDescription string    `json:"rule_description,omitempty"`
	RuleLevel       int       `json:"rule_level,omitempty"`
	Agent           string    `json:"agent,omitempty"`
	Status          Status    `json:"status"`
	Verdict         Verdict   `json:"verdict,omitempty"`
	Analysis        string    `json:"analysis,omitempty"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model,omitempty"`
	ErrorKind       ErrorKind `json:"error_kind,omitempty"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	Duration        float64   `json:"duration_seconds"`
	InputTokens     int       `json:"input_tokens,omitempty"`
	OutputTokens    int       `json:"output_tokens,omitempty"`

	// Err is the underlying failure, kept for errors.Is checks by callers.
	Err error `json:"-"`
}

// Failed reports whether the run ended without an analysis.
func (o *Outcome) Failed() bool {
	return o.Status == StatusError
}
