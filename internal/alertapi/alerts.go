package alertapi

import (
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/triage"
)

const (
	maxAlertBytes  = 1 << 20
	msgRequestJSON = "Request must be JSON"
)

func (a *API) handleWazuhAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAlertBytes))
	if err != nil {
		a.logger.Warn(ctx, "failed to read alert body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: triage.StatusError, Message: msgRequestJSON})
		return
	}

	rec, err := alert.Parse(body)
	if err != nil {
		a.logger.Warn(ctx, "rejected alert payload", "error", err, "bytes", len(body))
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: triage.StatusError, Message: msgRequestJSON})
		return
	}

	al := alert.New(SourcePush, rec)
	lvl, _ := al.RuleLevel()
	a.logger.Info(ctx, "alert received",
		"alert_id", al.ID,
		"rule", al.RuleDescription(),
		"rule_level", lvl,
		"agent", al.Agent(),
		"payload", string(body),
	)
	span.SetAttributes(attribute.String("argus.alert.id", al.ID))

	o := a.triager.Run(ctx, al)

	if o.Failed() {
		span.SetAttributes(attribute.String("argus.error_kind", string(o.ErrorKind)))
		writeJSON(w, statusForKind(o.ErrorKind), errorResponse{
			Status:    triage.StatusError,
			Message:   o.Error,
			AlertID:   o.AlertID,
			ErrorKind: o.ErrorKind,
		})
		return
	}

	span.SetAttributes(attribute.String("argus.verdict", string(o.Verdict)))
	writeJSON(w, http.StatusOK, successResponse{
		Status:   triage.StatusSuccess,
		AlertID:  o.AlertID,
		Verdict:  o.Verdict,
		Analysis: o.Analysis,
		Provider: o.Provider,
		Model:    o.Model,
	})
}

// statusForKind maps an inference failure to a gateway status.
func statusForKind(kind triage.ErrorKind) int {
	if kind == triage.KindTimeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
