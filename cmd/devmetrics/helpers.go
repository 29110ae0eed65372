package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Afrawles/devmetrics/internal/config"
)

var errStartRequired = errors.New("start date is required. Use --start YYYY-MM-DD")

// parseStartDate parses an ISO calendar date into a UTC midnight.
func parseStartDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, errStartRequired
	}

	start, err := time.Parse("2006-01-02", input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", input)
	}
	return start, nil
}

// mask keeps the last four characters of a secret.
func mask(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 4:
		return strings.Repeat("*", len(secret))
	default:
		return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
	}
}

func writeSettings(w io.Writer, cfg *config.Config) {
	settings := []struct{ key, value string }{
		{"JIRA_BASE_URL", cfg.Jira.BaseURL},
		{"JIRA_API_KEY", mask(cfg.Jira.APIKey)},
		{"JIRA_PROJECT_KEY", cfg.Jira.ProjectKey},
		{"BITBUCKET_URL", cfg.Bitbucket.BaseURL},
		{"BITBUCKET_USERNAME", cfg.Bitbucket.Username},
		{"BITBUCKET_PASSWORD", mask(cfg.Bitbucket.Password)},
		{"BITBUCKET_TOKEN", mask(cfg.Bitbucket.Token)},
		{"BITBUCKET_PROJECT", cfg.Bitbucket.Project},
		{"BITBUCKET_REPO", cfg.Bitbucket.Repo},
		{"OUTPUT_DIR", cfg.Output.Directory},
		{"OUTPUT_FORMAT", strings.Join(cfg.Output.Format, ",")},
		{"PAGE_LIMIT", fmt.Sprint(cfg.Fetch.PageLimit)},
		{"MAX_PAGES", fmt.Sprint(cfg.Fetch.MaxPages)},
		{"REQUESTS_PER_SECOND", fmt.Sprint(cfg.Fetch.RequestsPerSecond)},
		{"HTTP_TIMEOUT", cfg.Fetch.Timeout.String()},
		{"LOG_FORMAT", cfg.Log.Format},
	}
	for _, s := range settings {
		fmt.Fprintf(w, "%-22s %s\n", s.key+":", s.value)
	}
}
