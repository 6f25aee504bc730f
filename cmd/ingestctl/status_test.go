package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxnderia/ingestion/pkg/store"
)

func TestPrintRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, nil))
	assert.Equal(t, "No ingestion runs found\n", buf.String())
}

func TestPrintRuns(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	msg := strings.Repeat("x", 100)

	runs := []store.Run{
		{
			Provider:        "github",
			Status:          store.RunStatusSuccess,
			StartedAt:       started,
			FinishedAt:      &finished,
			RecordsUpserted: 42,
		},
		{
			Provider:     "aws_organizations",
			Status:       store.RunStatusFailed,
			StartedAt:    started,
			FinishedAt:   &finished,
			ErrorMessage: &msg,
		},
		{
			Provider:  "gcp_resource_manager",
			Status:    store.RunStatusRunning,
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, runs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "PROVIDER"))
	assert.Contains(t, lines[1], "SUCCESS")
	assert.Contains(t, lines[1], "1m30s")
	assert.Contains(t, lines[1], "42")
	assert.Contains(t, lines[2], strings.Repeat("x", 57)+"...")
	assert.NotContains(t, lines[2], strings.Repeat("x", 58))
	assert.Contains(t, lines[3], "RUNNING")
	assert.Contains(t, lines[3], " - ")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
