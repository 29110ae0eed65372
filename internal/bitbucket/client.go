package bitbucket

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
	apiPrefix      = "/rest/api/1.0"
	defaultTimeout = 30 * time.Second
)

type Client struct {
	baseURL    string
	project    string
	repo       string
	username   string
	password   string
	token      string
	httpClient *http.Client
	rps        float64
	logger     *slog.Logger
	requester  *fetch.Requester
}

type Option func(*Client)

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

// NewClient builds a Bitbucket Server client. An HTTP access token takes
// precedence over username/password basic auth.
func NewClient(cfg config.BitbucketConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:  cfg.BaseURL,
		project:  cfg.Project,
		repo:     cfg.Repo,
		username: cfg.Username,
		password: cfg.Password,
		token:    cfg.Token,
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
		Service:    "bitbucket",
		HTTPClient: &hc,
		Limiter:    fetch.NewLimiter(c.rps),
		Logger:     c.logger,
	}
	return c
}

// page is the envelope of every paged Bitbucket Server response.
type page[T any] struct {
	Size          int  `json:"size"`
	Limit         int  `json:"limit"`
	Start         int  `json:"start"`
	IsLastPage    bool `json:"isLastPage"`
	NextPageStart int  `json:"nextPageStart"`
	Values        []T  `json:"values"`
}

type PullRequest struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	State       string      `json:"state"`
	CreatedDate int64       `json:"createdDate"`
	UpdatedDate int64       `json:"updatedDate"`
	Author      Participant `json:"author"`
}

type Participant struct {
	User     User   `json:"user"`
	Role     string `json:"role"`
	Approved bool   `json:"approved"`
}

type User struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Slug         string `json:"slug"`
}

type Activity struct {
	ID          int64  `json:"id"`
	Action      string `json:"action"`
	CreatedDate int64  `json:"createdDate"`
	User        User   `json:"user"`
}

// PullRequests lists one page of pull requests in every state.
func (c *Client) PullRequests(ctx context.Context, start, limit int) ([]PullRequest, error) {
	q := url.Values{}
	q.Set("state", "ALL")
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(limit))

	var result page[PullRequest]
	if err := c.get(ctx, c.repoPath("/pull-requests")+"?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Values, nil
}

// PullRequestActivities lists one page of a pull request's activity stream.
func (c *Client) PullRequestActivities(ctx context.Context, prID, start, limit int) ([]Activity, error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(limit))

	var result page[Activity]
	path := c.repoPath(fmt.Sprintf("/pull-requests/%d/activities", prID))
	if err := c.get(ctx, path+"?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Values, nil
}

// CurrentUser looks up the configured user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	name := c.username
	if name == "" {
		name = "~"
	}
	var user User
	if err := c.get(ctx, apiPrefix+"/users/"+url.PathEscape(name), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("%s/projects/%s/repos/%s%s", apiPrefix, url.PathEscape(c.project), url.PathEscape(c.repo), suffix)
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	if c.token == "" && (c.username == "" || c.password == "") {
		return fmt.Errorf("bitbucket: %w (set BITBUCKET_TOKEN or BITBUCKET_USERNAME and BITBUCKET_PASSWORD)", fetch.ErrMissingCredentials)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token == "" {
		req.SetBasicAuth(c.username, c.password)
	}

	return c.requester.GetJSON(req, v)
}
