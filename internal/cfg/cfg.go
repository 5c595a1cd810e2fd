// Package cfg holds the flag-bound configuration for the argus binaries.
// Each struct follows the go-core cfg Registerable/Validatable shape so the
// binaries can fill it from flags and ARGUS_-prefixed environment variables.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"time"
)

// Inference providers.
const (
	ProviderOllama = "ollama"
	ProviderClaude = "claude"
)

const (
	// DefaultOllamaURL is used when neither -ollama-url nor OLLAMA_HOST_URL is set.
	DefaultOllamaURL = "http://ollama:11434"

	// LegacyOllamaEnv is the variable existing Wazuh integrations export.
	LegacyOllamaEnv = "OLLAMA_HOST_URL"
)

// Config is the inference and notification configuration shared by every mode.
type Config struct {
	Provider                string
	OllamaURL               string
	Model                   string
	InferenceTimeoutSeconds int
	ClaudeAPIKey            string
	ClaudeModel             string
	SlackWebhookURL         string
	SlackNotifyAll          bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Provider, "provider", ProviderOllama, "inference provider (ollama|claude)")
	fs.StringVar(&c.OllamaURL, "ollama-url", DefaultOllamaURL, "Ollama base URL (falls back to $"+LegacyOllamaEnv+" when left at the default)")
	fs.StringVar(&c.Model, "model", "deepseek-r1", "Ollama model name")
	fs.IntVar(&c.InferenceTimeoutSeconds, "inference-timeout-seconds", 120, "maximum seconds to wait for one inference call (1..3600)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-5", "Claude model to use")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for escalation notifications (empty = disabled)")
	fs.BoolVar(&c.SlackNotifyAll, "slack-notify-all", false, "send every outcome to Slack, not only escalations")
}

// ApplyLegacyEnv uses OLLAMA_HOST_URL when the Ollama URL was left at its
// default. Call it after flags and ARGUS_ variables have been applied.
func (c *Config) ApplyLegacyEnv(getenv func(string) string) {
	if c.OllamaURL != DefaultOllamaURL {
		return
	}
	if v := getenv(LegacyOllamaEnv); v != "" {
		c.OllamaURL = v
	}
}

// InferenceTimeout returns the per-call wait budget.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutSeconds) * time.Second
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderOllama:
		if err := validateURL("OLLAMA_URL", c.OllamaURL); err != nil {
			errs = append(errs, err)
		}
		if c.Model == "" {
			errs = append(errs, errors.New("MODEL is required"))
		}
	case ProviderClaude:
		// Claude API key is required for LLM access
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required when PROVIDER=claude"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required when PROVIDER=claude"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid PROVIDER %q (must be %s or %s)", c.Provider, ProviderOllama, ProviderClaude))
	}

	if c.InferenceTimeoutSeconds <= 0 || c.InferenceTimeoutSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid INFERENCE_TIMEOUT_SECONDS %d (must be 1..3600)", c.InferenceTimeoutSeconds))
	}

	if c.SlackWebhookURL != "" {
		if err := validateURL("SLACK_WEBHOOK_URL", c.SlackWebhookURL); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ServerConfig configures the push-mode HTTP server.
type ServerConfig struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
}

// RegisterFlags binds ServerConfig fields to the given FlagSet with defaults inline
func (c *ServerConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 130, "seconds to wait for in-flight requests to drain before shutdown (1..300, at least the inference timeout)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 180, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 5001, "API listen TCP port (1..65535)")
}

// Validate checks all server fields for correctness.
func (c *ServerConfig) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CheckInferenceTimeout reports an error when the drain period is shorter
// than one inference, which would cut off triages still in flight at shutdown.
func (c *ServerConfig) CheckInferenceTimeout(inferenceSeconds int) error {
	if c.DrainSeconds < inferenceSeconds {
		return fmt.Errorf("DRAIN_SECONDS %d must be at least INFERENCE_TIMEOUT_SECONDS %d", c.DrainSeconds, inferenceSeconds)
	}
	return nil
}

// IndexerConfig configures pull mode against the Wazuh indexer.
type IndexerConfig struct {
	URL                string
	IndexPattern       string
	SeverityField      string
	MinLevel           int
	SortField          string
	Size               int
	Username           string
	Password           string
	InsecureSkipVerify bool
	TimeoutSeconds     int
}

// RegisterFlags binds IndexerConfig fields to the given FlagSet with defaults inline
func (c *IndexerConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.URL, "indexer-url", "http://wazuh.indexer:9200", "Wazuh indexer base URL")
	fs.StringVar(&c.IndexPattern, "indexer-index", "wazuh-alerts-*", "index pattern to search")
	fs.StringVar(&c.SeverityField, "indexer-severity-field", "rule.level", "numeric field compared against -indexer-min-level")
	fs.IntVar(&c.MinLevel, "indexer-min-level", 7, "minimum rule level to fetch (0..16)")
	fs.StringVar(&c.SortField, "indexer-sort-field", "timestamp", "field to sort hits by, newest first")
	fs.IntVar(&c.Size, "indexer-size", 5, "number of alerts to fetch per run (1..1000)")
	fs.StringVar(&c.Username, "indexer-username", "", "basic auth username for the indexer")
	fs.StringVar(&c.Password, "indexer-password", "", "basic auth password for the indexer")
	fs.BoolVar(&c.InsecureSkipVerify, "indexer-insecure-skip-verify", false, "skip TLS certificate verification for the indexer")
	fs.IntVar(&c.TimeoutSeconds, "indexer-timeout-seconds", 30, "indexer request timeout in seconds (1..300)")
}

// Timeout returns the indexer request timeout.
func (c *IndexerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks all indexer fields for correctness.
func (c *IndexerConfig) Validate() error {
	var errs []error

	if err := validateURL("INDEXER_URL", c.URL); err != nil {
		errs = append(errs, err)
	}
	if c.IndexPattern == "" {
		errs = append(errs, errors.New("INDEXER_INDEX is required"))
	}
	if c.SeverityField == "" {
		errs = append(errs, errors.New("INDEXER_SEVERITY_FIELD is required"))
	}
	if c.SortField == "" {
		errs = append(errs, errors.New("INDEXER_SORT_FIELD is required"))
	}
	// Wazuh rule levels run 0..16
	if c.MinLevel < 0 || c.MinLevel > 16 {
		errs = append(errs, fmt.Errorf("invalid INDEXER_MIN_LEVEL %d (must be 0..16)", c.MinLevel))
	}
	if c.Size <= 0 || c.Size > 1000 {
		errs = append(errs, fmt.Errorf("invalid INDEXER_SIZE %d (must be 1..1000)", c.Size))
	}
	if c.TimeoutSeconds <= 0 || c.TimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid INDEXER_TIMEOUT_SECONDS %d (must be 1..300)", c.TimeoutSeconds))
	}
	if c.Password != "" && c.Username == "" {
		errs = append(errs, errors.New("INDEXER_PASSWORD set without INDEXER_USERNAME"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q (scheme must be http or https)", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q (missing host)", name, raw)
	}
	return nil
}
