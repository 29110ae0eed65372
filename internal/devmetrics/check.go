package devmetrics

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/Afrawles/devmetrics/internal/bitbucket"
	"github.com/Afrawles/devmetrics/internal/jira"
)

// Checker probes one service with an authenticated call and returns the
// name of the account the credentials belong to.
type Checker interface {
	Name() string
	Check(ctx context.Context) (string, error)
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) (string, error)
}

func (c checkFunc) Name() string                              { return c.name }
func (c checkFunc) Check(ctx context.Context) (string, error) { return c.fn(ctx) }

// Checkers returns connectivity probes for Jira and Bitbucket.
func (app *Application) Checkers() []Checker {
	cfg := app.Config
	jiraClient := jira.NewClient(cfg.Jira,
		jira.WithLogger(app.Logger),
		jira.WithHTTPClient(app.httpClient(cfg.Jira.InsecureSkipVerify)),
	)
	bbClient := bitbucket.NewClient(cfg.Bitbucket,
		bitbucket.WithLogger(app.Logger),
		bitbucket.WithHTTPClient(app.httpClient(cfg.Bitbucket.InsecureSkipVerify)),
	)

	return []Checker{
		checkFunc{name: "Jira", fn: func(ctx context.Context) (string, error) {
			u, err := jiraClient.Myself(ctx)
			if err != nil {
				return "", err
			}
			return u.DisplayName, nil
		}},
		checkFunc{name: "Bitbucket", fn: func(ctx context.Context) (string, error) {
			u, err := bbClient.CurrentUser(ctx)
			if err != nil {
				return "", err
			}
			return u.DisplayName, nil
		}},
	}
}

// Check runs every checker and prints one line per service.
func (app *Application) Check(ctx context.Context, checkers ...Checker) error {
	var result *multierror.Error

	for _, c := range checkers {
		account, err := c.Check(ctx)
		if err != nil {
			app.Logger.ErrorContext(ctx, "connection check failed", "service", c.Name(), "error", err)
			fmt.Fprintf(app.Out, "%s: FAILED (%v)\n", c.Name(), err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		app.Logger.InfoContext(ctx, "connection check passed", "service", c.Name(), "account", account)
		fmt.Fprintf(app.Out, "%s: OK (authenticated as %s)\n", c.Name(), account)
	}

	return result.ErrorOrNil()
}
