package triage

import (
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/argus/internal/alert"
)

// Section headers that frame the embedded alert JSON in the prompt.
const (
	promptAlertHeader    = "Alert Details:\n"
	promptAnalysisHeader = "\n\nAnalysis and Recommendations:\n"
)

const promptInstructions = `Analyze the following security alert. Provide a concise summary, potential impact, and recommended actions.
Act as a highly experienced SOC analyst. Focus on practical, actionable advice for a security team.
If the alert is critical, explicitly state '` + MarkerCritical + `' and suggest immediate remediation steps.
If it's informational or low severity, state '` + MarkerLowSeverity + `' or '` + MarkerInformational + `' and suggest monitoring or minor adjustments.

`

// RenderPrompt interpolates the record's indented JSON into the fixed SOC
// analyst template. Output is deterministic since encoding/json sorts map keys.
func RenderPrompt(rec alert.Record) string {
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		// records decoded from JSON always re-encode
		body = []byte(fmt.Sprintf("%v", rec))
	}
	return promptInstructions + promptAlertHeader + string(body) + promptAnalysisHeader
}
