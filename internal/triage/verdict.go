package triage

import "strings"

// Verdict is the triage decision derived from the model's analysis text.
type Verdict string

const (
	// VerdictEscalate means the model flagged the alert as critical.
	VerdictEscalate Verdict = "escalate"

	// VerdictMonitor means the model called the alert low severity or informational.
	VerdictMonitor Verdict = "monitor"

	// VerdictUnclassified means none of the markers were present.
	VerdictUnclassified Verdict = "unclassified"
)

// Markers the prompt asks the model to emit verbatim.
const (
	MarkerCritical      = "CRITICAL ALERT"
	MarkerLowSeverity   = "LOW SEVERITY"
	MarkerInformational = "INFORMATIONAL"
)

// Classify maps analysis text to a Verdict by case-insensitive marker match.
// The critical marker wins over the others. This only works as long as the
// model follows the marker convention in the prompt; phrasing drift lands in
// VerdictUnclassified.
func Classify(analysis string) Verdict {
	upper := strings.ToUpper(analysis)
	switch {
	case strings.Contains(upper, MarkerCritical):
		return VerdictEscalate
	case strings.Contains(upper, MarkerLowSeverity), strings.Contains(upper, MarkerInformational):
		return VerdictMonitor
	default:
		return VerdictUnclassified
	}
}
