// Argus triages Wazuh alerts from the command line: one alert on stdin
// (pipe mode, for integratord and active response) or the newest high-level
// alerts from the indexer (pull mode).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/otelx"
	v "github.com/linnemanlabs/go-core/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/linnemanlabs/argus/internal/alert"
	ac "github.com/linnemanlabs/argus/internal/cfg"
	"github.com/linnemanlabs/argus/internal/llm"
	"github.com/linnemanlabs/argus/internal/notify/slack"
	"github.com/linnemanlabs/argus/internal/report"
	"github.com/linnemanlabs/argus/internal/triage"
	"github.com/linnemanlabs/argus/internal/wazuh"
)

const appName = "argus"
const component = "cli"

const (
	modePipe = "pipe"
	modePull = "pull"
)

// Exit codes.
const (
	exitOK             = 0
	exitFailure        = 1
	exitTriageFailures = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	mode           string
	envFile        string
	debugLog       string
	pushgatewayURL string
	showVersion    bool

	app     ac.Config
	indexer ac.IndexerConfig
	log     log.Config
	trace   otelx.Config
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	o.app.RegisterFlags(fs)
	o.indexer.RegisterFlags(fs)
	o.log.RegisterFlags(fs)
	o.trace.RegisterFlags(fs)
	fs.StringVar(&o.mode, "mode", modePipe, "alert source: pipe (one alert on stdin) or pull (query the indexer)")
	fs.StringVar(&o.envFile, "env-file", "", "load environment variables from this file before reading ARGUS_ variables")
	fs.StringVar(&o.debugLog, "debug-log", "", "append every received alert to this file")
	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "push run metrics to this Prometheus Pushgateway")
	fs.BoolVar(&o.showVersion, "V", false, "Print version+build information and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.showVersion {
		return &o, nil
	}

	// godotenv never overrides variables already present in the environment
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg.FillFromEnv(fs, "ARGUS_", func(format string, args ...any) {
		fmt.Fprintf(stderr, format+"\n", args...)
	})
	o.app.ApplyLegacyEnv(os.Getenv)

	errs := []error{o.app.Validate(), o.log.Validate(), o.trace.Validate()}
	switch o.mode {
	case modePipe:
	case modePull:
		errs = append(errs, o.indexer.Validate())
	default:
		errs = append(errs, fmt.Errorf("invalid MODE %q (must be %s or %s)", o.mode, modePipe, modePull))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	v.AppName = appName
	v.Component = component
	vi := v.Get()

	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "fatal error:", err)
		}
		return exitFailure
	}
	if o.showVersion {
		fmt.Fprintf(stdout, "%s (%s) %s (commit=%s, build_id=%s, go=%s)\n",
			vi.AppName, vi.Component, vi.Version, vi.Commit, vi.BuildId, vi.GoVersion)
		return exitOK
	}

	lg, err := log.New(o.log.ToOptions(v.AppName))
	if err != nil {
		fmt.Fprintln(stderr, "fatal error: logger init:", err)
		return exitFailure
	}
	defer func() { _ = lg.Sync() }()

	L := lg.With("component", vi.Component, "mode", o.mode)
	ctx = log.WithContext(ctx, L)

	traceOpts := o.trace.ToOptions()
	traceOpts.Service = v.AppName
	traceOpts.Component = v.Component
	traceOpts.Version = v.Version
	shutdownOtelx, err := otelx.Init(ctx, traceOpts)
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	if shutdownOtelx != nil {
		defer func() { _ = shutdownOtelx(context.Background()) }()
	}

	reg := prometheus.NewRegistry()
	m := triage.NewMetrics(reg)
	if o.pushgatewayURL != "" {
		defer pushMetrics(ctx, L, o.pushgatewayURL, o.mode, reg)
	}

	provider, model, err := llm.New(&o.app)
	if err != nil {
		fmt.Fprintln(stderr, "fatal error:", err)
		return exitFailure
	}

	var src alert.Source
	switch o.mode {
	case modePull:
		src = wazuh.NewIndexer(indexerOptions(&o.indexer))
	default:
		src = alert.NewPipeSource(stdin)
	}
	if o.debugLog != "" {
		src = &debugSource{src: src, path: o.debugLog, warn: stderr}
	}

	sinks := []triage.Sink{report.NewConsole(stdout, stderr)}
	if o.app.SlackWebhookURL != "" {
		sinks = append(sinks, slack.New(o.app.SlackWebhookURL, o.app.SlackNotifyAll, L))
	}

	pipeline := triage.NewPipeline(provider, L, triage.Options{
		Model:   model,
		Timeout: o.app.InferenceTimeout(),
		Hooks:   m.Hooks(),
	}, sinks...)

	alerts, err := src.Alerts(ctx)
	if err != nil {
		m.ObserveSourceError(err)
		L.Error(ctx, err, "failed to read alerts", "error_kind", triage.KindOf(err))
		fmt.Fprintf(stderr, "ERROR: %v (%s)\n", err, triage.KindOf(err))
		return exitFailure
	}
	if len(alerts) == 0 {
		L.Info(ctx, "no alerts to triage")
		return exitOK
	}

	failed, triaged := 0, 0
	for _, al := range alerts {
		if ctx.Err() != nil {
			break
		}
		if pipeline.Run(ctx, al).Failed() {
			failed++
		}
		triaged++
	}

	if err := ctx.Err(); err != nil {
		L.Warn(ctx, "run interrupted", "alerts", len(alerts), "triaged", triaged, "error", err)
		fmt.Fprintf(stderr, "ERROR: run interrupted after %d of %d alerts: %v\n", triaged, len(alerts), err)
		return exitFailure
	}

	L.Info(ctx, "run complete", "alerts", len(alerts), "failed", failed, "provider", provider.Name(), "model", model)
	if failed > 0 {
		return exitTriageFailures
	}
	return exitOK
}

func indexerOptions(c *ac.IndexerConfig) wazuh.Options {
	return wazuh.Options{
		URL:                c.URL,
		IndexPattern:       c.IndexPattern,
		SeverityField:      c.SeverityField,
		MinSeverity:        c.MinLevel,
		SortField:          c.SortField,
		Size:               c.Size,
		Username:           c.Username,
		Password:           c.Password,
		InsecureSkipVerify: c.InsecureSkipVerify,
		Timeout:            c.Timeout(),
	}
}

// pushMetrics sends the run's metrics to a Pushgateway. Failures are logged only.
func pushMetrics(ctx context.Context, L log.Logger, url, mode string, g prometheus.Gatherer) {
	err := push.New(url, appName).
		Grouping("mode", mode).
		Gatherer(g).
		PushContext(ctx)
	if err != nil {
		L.Error(ctx, err, "pushgateway push failed", "url", url)
	}
}
