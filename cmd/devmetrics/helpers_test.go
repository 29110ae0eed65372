package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/devmetrics/internal/config"
)

func TestParseStartDate(t *testing.T) {
	start, err := parseStartDate(" 2025-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), start)

	_, err = parseStartDate("")
	assert.ErrorIs(t, err, errStartRequired)

	_, err = parseStartDate("01/03/2025")
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(not set)", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "******7890", mask("1234567890"))
}

func TestWriteSettings_MasksSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Jira.APIKey = "jira-secret-token"
	cfg.Bitbucket.Token = "bb-secret-token"
	cfg.Output.Format = []string{"xlsx", "png"}

	var buf bytes.Buffer
	writeSettings(&buf, cfg)

	assert.NotContains(t, buf.String(), "jira-secret-token")
	assert.NotContains(t, buf.String(), "bb-secret-token")
	assert.Contains(t, buf.String(), "OUTPUT_FORMAT:         xlsx,png")
}

func TestGenerateMetrics_UserErrors(t *testing.T) {
	tests := []struct {
		name      string
		jira      bool
		bitbucket bool
		start     string
		want      string
	}{
		{name: "no mode", start: "2025-01-01", want: "No mode selected"},
		{name: "missing start", jira: true, want: "start date is required"},
		{name: "bad start", bitbucket: true, start: "yesterday", want: "invalid start date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jiraMode, bitbucketMode, startDate = tt.jira, tt.bitbucket, tt.start
			t.Cleanup(func() { jiraMode, bitbucketMode, startDate = false, false, "" })

			var out bytes.Buffer
			rootCmd.SetOut(&out)
			t.Cleanup(func() { rootCmd.SetOut(nil) })

			require.NoError(t, generateMetrics(rootCmd, nil))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
