package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Jira      JiraConfig
	Bitbucket BitbucketConfig
	Output    OutputConfig
	Fetch     FetchConfig
	Log       LogConfig
}

type JiraConfig struct {
	BaseURL            string `env:"JIRA_BASE_URL" env-default:"https://your-jira-instance.atlassian.net"`
	APIKey             string `env:"JIRA_API_KEY"`
	ProjectKey         string `env:"JIRA_PROJECT_KEY" env-default:"PROJ"`
	InsecureSkipVerify bool   `env:"JIRA_INSECURE_SKIP_VERIFY" env-default:"false"`
}

type BitbucketConfig struct {
	BaseURL            string `env:"BITBUCKET_URL" env-default:"https://bitbucket.org"`
	Username           string `env:"BITBUCKET_USERNAME"`
	Password           string `env:"BITBUCKET_PASSWORD"`
	Token              string `env:"BITBUCKET_TOKEN"`
	Project            string `env:"BITBUCKET_PROJECT" env-default:"PROJ"`
	Repo               string `env:"BITBUCKET_REPO"`
	InsecureSkipVerify bool   `env:"BITBUCKET_INSECURE_SKIP_VERIFY" env-default:"false"`
}

type OutputConfig struct {
	Directory string   `env:"OUTPUT_DIR" env-default:"reports"`
	Format    []string `env:"OUTPUT_FORMAT" env-default:"xlsx,png" env-separator:","` // xlsx, png, csv, json, html
}

type FetchConfig struct {
	PageLimit         int           `env:"PAGE_LIMIT" env-default:"100"`
	MaxPages          int           `env:"MAX_PAGES" env-default:"500"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" env-default:"10"`
	Timeout           time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
}

type LogConfig struct {
	Format string `env:"LOG_FORMAT" env-default:"json"`
}

// Formats the exporter knows how to write.
var knownFormats = map[string]bool{
	"xlsx": true,
	"png":  true,
	"csv":  true,
	"json": true,
	"html": true,
}

// Load reads the configuration from the environment. When envFile names an
// existing file its values are loaded first; variables already set in the
// environment are never overwritten by it.
func Load(envFile string) (*Config, error) {
	var cfg Config

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			// godotenv.Load skips keys that are already set.
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Jira.BaseURL = strings.TrimRight(c.Jira.BaseURL, "/")
	c.Bitbucket.BaseURL = strings.TrimRight(c.Bitbucket.BaseURL, "/")

	formats := c.Output.Format[:0]
	for _, f := range c.Output.Format {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			formats = append(formats, f)
		}
	}
	c.Output.Format = formats
}

// Validate checks structural settings. Credentials are not checked here: a
// missing token surfaces as an authentication failure on first use.
func (c *Config) Validate() error {
	var errs []error

	if c.Fetch.PageLimit <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_LIMIT must be positive, got %d", c.Fetch.PageLimit))
	}
	if c.Fetch.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("MAX_PAGES must be positive, got %d", c.Fetch.MaxPages))
	}
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("OUTPUT_DIR must not be empty"))
	}
	if len(c.Output.Format) == 0 {
		errs = append(errs, errors.New("OUTPUT_FORMAT must list at least one format"))
	}
	for _, f := range c.Output.Format {
		if !knownFormats[f] {
			errs = append(errs, fmt.Errorf("unknown output format %q", f))
		}
	}

	return errors.Join(errs...)
}

// SetFormats overrides the output formats from a comma-separated list.
func (c *Config) SetFormats(list string) {
	c.Output.Format = strings.Split(list, ",")
	c.normalize()
}
