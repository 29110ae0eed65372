package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Afrawles/devmetrics/internal/config"
	"github.com/Afrawles/devmetrics/internal/devmetrics"
)

var (
	startDate     string
	jiraMode      bool
	bitbucketMode bool
	output        string
	formats       string
	envFile       string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "devmetrics",
	Short: "Report delivery metrics from Jira and Bitbucket",
	Long: `devmetrics fetches Jira issues and Bitbucket pull requests, derives
cycle time, lead time and review metrics, and writes them as spreadsheets
and charts.`,
	Example:      "  devmetrics --start 2025-01-01 --jira --bitbucket --format xlsx,png,html",
	SilenceUsage: true,
	RunE:         generateMetrics,
}

var checkCmd = &cobra.Command{
	Use:          "check",
	Short:        "Verify connectivity and credentials for Jira and Bitbucket",
	SilenceUsage: true,
	RunE:         checkConnections,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE:  printConfig,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(checkCmd, configCmd)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load settings from")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&startDate, "start", "s", "", "Start date (YYYY-MM-DD)")
	rootCmd.Flags().BoolVar(&jiraMode, "jira", false, "Fetch Jira issues and report cycle and lead time")
	rootCmd.Flags().BoolVar(&bitbucketMode, "bitbucket", false, "Fetch Bitbucket pull requests and report review metrics")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from OUTPUT_DIR)")
	rootCmd.Flags().StringVar(&formats, "format", "", "Comma-separated output formats: xlsx, png, csv, json, html")
}

func generateMetrics(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !jiraMode && !bitbucketMode {
		fmt.Fprintln(out, "No mode selected. Use --jira, --bitbucket, or both.")
		return nil
	}

	start, err := parseStartDate(startDate)
	if err != nil {
		fmt.Fprintln(out, err)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Output.Directory = output
	}
	if formats != "" {
		cfg.SetFormats(formats)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app := devmetrics.New(cfg, devmetrics.NewLogger(cfg.Log.Format, verbose))
	app.Out = out

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var pipelines []devmetrics.Pipeline
	if jiraMode {
		pipelines = append(pipelines, app.IssuePipeline(start))
	}
	if bitbucketMode {
		pipelines = append(pipelines, app.PullRequestPipeline(start))
	}

	fmt.Fprintf(out, "Generating metrics since %s into %s/\n\n", start.Format("2006-01-02"), cfg.Output.Directory)
	return app.Run(ctx, start, pipelines...)
}

func checkConnections(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app := devmetrics.New(cfg, devmetrics.NewLogger(cfg.Log.Format, verbose))
	app.Out = cmd.OutOrStdout()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return app.Check(ctx, app.Checkers()...)
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	writeSettings(cmd.OutOrStdout(), cfg)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
