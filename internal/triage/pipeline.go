package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/argus/internal/alert"
)

// DefaultTimeout bounds a single inference call when Options.Timeout is unset.
const DefaultTimeout = 120 * time.Second

var tracer = otel.Tracer("github.com/linnemanlabs/argus/internal/triage")

// Hooks are optional callbacks for instrumentation. Nil fields are skipped.
type Hooks struct {
	OnReceived  func(source string)
	OnInference func(provider string, duration float64, kind ErrorKind)
	OnComplete  func(o *Outcome)
	OnSinkError func(sink string)
}

// Options configures a Pipeline.
type Options struct {
	Model   string
	Timeout time.Duration
	Hooks   Hooks
}

// Pipeline runs Received -> Formatted -> Analyzed -> Classified -> Reported
// for one alert at a time. It holds no per-alert state, so a single Pipeline
// may serve concurrent callers.
type Pipeline struct {
	provider Provider
	sinks    []Sink
	logger   log.Logger
	opts     Options
}

// NewPipeline creates a pipeline reporting to the given sinks in order.
func NewPipeline(provider Provider, logger log.Logger, opts Options, sinks ...Sink) *Pipeline {
	if provider == nil {
		panic(xerrors.New("inference provider is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Pipeline{
		provider: provider,
		sinks:    sinks,
		logger:   logger,
		opts:     opts,
	}
}

// Run triages a single alert and reports the outcome to every sink.
func (p *Pipeline) Run(ctx context.Context, al *alert.Alert) *Outcome {
	o := p.Analyze(ctx, al)
	p.Report(ctx, o)
	return o
}

// Analyze runs every stage except reporting. Callers that answer the alert
// themselves (the push API) use it together with Report.
func (p *Pipeline) Analyze(ctx context.Context, al *alert.Alert) *Outcome {
	ctx, span := tracer.Start(ctx, "triage.run", trace.WithAttributes(
		attribute.String("argus.alert.id", al.ID),
		attribute.String("argus.alert.source", al.Source),
		attribute.String("gen_ai.system", p.provider.Name()),
	))
	defer span.End()

	if p.opts.Hooks.OnReceived != nil {
		p.opts.Hooks.OnReceived(al.Source)
	}

	o := &Outcome{
		AlertID:         al.ID,
		Source:          al.Source,
		RuleDescription: al.RuleDescription(),
		Agent:           al.Agent(),
		Provider:        p.provider.Name(),
		Model:           p.opts.Model,
		StartedAt:       time.Now(),
	}
	if lvl, ok := al.RuleLevel(); ok {
		o.RuleLevel = lvl
	}

	L := p.logger.With(
		"alert_id", al.ID,
		"source", al.Source,
		"rule", o.RuleDescription,
	)

	prompt := RenderPrompt(al.Record)

	resp, err := p.generate(ctx, prompt)
	o.CompletedAt = time.Now()
	o.Duration = o.CompletedAt.Sub(o.StartedAt).Seconds()

	if err != nil {
		o.Status = StatusError
		o.Err = err
		o.ErrorKind = KindOf(err)
		o.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("argus.error_kind", string(o.ErrorKind)))
		L.Error(ctx, err, "inference failed", "error_kind", o.ErrorKind, "duration", o.Duration)
	} else {
		o.Status = StatusSuccess
		o.Analysis = resp.Text
		if resp.Model != "" {
			o.Model = resp.Model
		}
		o.InputTokens = resp.InputTokens
		o.OutputTokens = resp.OutputTokens
		o.Verdict = Classify(resp.Text)
		span.SetAttributes(attribute.String("argus.verdict", string(o.Verdict)))
		L.Info(ctx, "alert triaged",
			"verdict", o.Verdict,
			"model", o.Model,
			"duration", o.Duration,
			"analysis_bytes", len(o.Analysis),
		)
	}

	if p.opts.Hooks.OnComplete != nil {
		p.opts.Hooks.OnComplete(o)
	}
	return o
}

// Report hands the outcome to every sink. A failing sink is logged and
// does not stop the others.
func (p *Pipeline) Report(ctx context.Context, o *Outcome) {
	for _, s := range p.sinks {
		if err := s.Report(ctx, o); err != nil {
			p.logger.Error(ctx, err, "sink report failed", "sink", s.Name(), "alert_id", o.AlertID)
			if p.opts.Hooks.OnSinkError != nil {
				p.opts.Hooks.OnSinkError(s.Name())
			}
		}
	}
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (*GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "generate"),
		attribute.String("gen_ai.system", p.provider.Name()),
		attribute.String("gen_ai.request.model", p.opts.Model),
		attribute.Int("argus.prompt.bytes", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	resp, err := p.provider.Generate(ctx, &GenerateRequest{
		Model:  p.opts.Model,
		Prompt: prompt,
	})
	dur := time.Since(start).Seconds()

	if err == nil && resp == nil {
		err = fmt.Errorf("%w: provider returned no response", ErrMalformedResponse)
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && KindOf(err) != KindTimeout {
		// the pipeline deadline fired underneath the provider
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if p.opts.Hooks.OnInference != nil {
		p.opts.Hooks.OnInference(p.provider.Name(), dur, KindOf(err))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int("gen_ai.usage.input_tokens", resp.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.OutputTokens),
	)
	return resp, nil
}
