package triage

import "context"

// Sink reports an Outcome somewhere visible: a console, a log, a chat channel.
// Report errors are logged by the pipeline and never fail the run.
type Sink interface {
	Name() string
	Report(ctx context.Context, o *Outcome) error
}
