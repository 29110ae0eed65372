package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/fetch"
)

const (
	searchPath = "/rest/api/2/search"
	myselfPath = "/rest/api/2/myself"

	defaultTimeout = 30 * time.Second
)

// searchFields limits the issue payload to what the metrics need.
const searchFields = "summary,created,updated,assignee,status"

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	rps        float64
	logger     *slog.Logger
	requester  *fetch.Requester
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Bearer auth is still
// layered on top of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.rps = rps
	}
}

func NewClient(cfg config.JiraConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: fetch.NewTransport(cfg.InsecureSkipVerify),
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	if c.token != "" {
		hc.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token}),
			Base:   hc.Transport,
		}
	}

	c.requester = &fetch.Requester{
		Service:    "jira",
		HTTPClient: &hc,
		Limiter:    fetch.NewLimiter(c.rps),
		Logger:     c.logger,
	}
	return c
}

type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

type Issue struct {
	Key       string      `json:"key"`
	Fields    IssueFields `json:"fields"`
	Changelog Changelog   `json:"changelog"`
}

type IssueFields struct {
	Summary  string  `json:"summary"`
	Created  string  `json:"created"`
	Updated  string  `json:"updated"`
	Assignee *User   `json:"assignee"`
	Status   *Status `json:"status"`
}

type Status struct {
	Name string `json:"name"`
}

type User struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type Changelog struct {
	Histories []History `json:"histories"`
}

type History struct {
	Created string        `json:"created"`
	Items   []HistoryItem `json:"items"`
}

type HistoryItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// SearchIssues runs a JQL search with changelogs expanded.
func (c *Client) SearchIssues(ctx context.Context, jql string, startAt, maxResults int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("startAt", strconv.Itoa(startAt))
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("expand", "changelog")
	q.Set("fields", searchFields)

	var result SearchResult
	if err := c.get(ctx, searchPath+"?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Myself returns the user the token belongs to.
func (c *Client) Myself(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, myselfPath, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	if c.token == "" {
		return fmt.Errorf("jira: %w (set JIRA_API_KEY)", fetch.ErrMissingCredentials)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.requester.GetJSON(req, v)
}
