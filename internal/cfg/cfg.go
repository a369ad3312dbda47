package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config adds scribe-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ClaudeAPIKey          string
	ClaudeModel           string
	DatabaseURL           string
	SlackWebhookURL       string
	GitHubToken           string
	GitHubRepo            string
	APIToken              string
	ProjectMap            string
	MinAttention          int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.GitHubToken, "github-token", "", "GitHub token for filing extracted tasks as issues")
	fs.StringVar(&c.GitHubRepo, "github-repo", "", "GitHub repository (owner/repo) to file issues against")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
	fs.StringVar(&c.ProjectMap, "project-map", "", "channel-to-project declarations, e.g. chan1=projA,chan2=projA")
	fs.IntVar(&c.MinAttention, "min-attention", 25, "minimum attention score a message needs to enter extraction (0..100)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
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

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	// GitHub settings come as a pair
	if c.GitHubToken != "" && c.GitHubRepo == "" {
		errs = append(errs, errors.New("GITHUB_REPO is required when GITHUB_TOKEN is set"))
	}
	if c.GitHubRepo != "" && !strings.Contains(c.GitHubRepo, "/") {
		errs = append(errs, fmt.Errorf("invalid GITHUB_REPO %q (must be owner/repo)", c.GitHubRepo))
	}

	if c.MinAttention < 0 || c.MinAttention > 100 {
		errs = append(errs, fmt.Errorf("invalid MIN_ATTENTION %d (must be 0..100)", c.MinAttention))
	}

	if _, err := ParseProjectMap(c.ProjectMap); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ParseProjectMap parses "chan1=projA,chan2=projB" declarations into a
// channel-to-project map. Empty input yields an empty map.
func ParseProjectMap(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		channel, project, ok := strings.Cut(pair, "=")
		channel = strings.TrimSpace(channel)
		project = strings.TrimSpace(project)
		if !ok || channel == "" || project == "" {
			return nil, fmt.Errorf("invalid PROJECT_MAP entry %q (must be channel=project)", pair)
		}
		out[channel] = project
	}
	return out, nil
}
