// Package alertapi serves the push-mode HTTP endpoint that Wazuh integrations
// post alerts to.
package alertapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/triage"
)

// SourcePush identifies alerts received over HTTP.
const SourcePush = "push"

// Triager runs one alert through the triage pipeline.
type Triager interface {
	Run(ctx context.Context, al *alert.Alert) *triage.Outcome
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger  log.Logger
	triager Triager
}

// New creates a new API handler.
func New(logger log.Logger, triager Triager) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if triager == nil {
		panic(xerrors.New("triage pipeline is required"))
	}
	return &API{
		logger:  logger,
		triager: triager,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/wazuh-alert", a.handleWazuhAlert)
}

type successResponse struct {
	Status   triage.Status  `json:"status"`
	AlertID  string         `json:"alert_id"`
	Verdict  triage.Verdict `json:"verdict"`
	Analysis string         `json:"ollama_analysis"`
	Provider string         `json:"provider"`
	Model    string         `json:"model,omitempty"`
}

type errorResponse struct {
	Status    triage.Status    `json:"status"`
	Message   string           `json:"message"`
	AlertID   string           `json:"alert_id,omitempty"`
	ErrorKind triage.ErrorKind `json:"error_kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}
