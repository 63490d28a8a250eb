package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:                 "abc12345-6789-0000-0000-000000000000",
			ProductDescription: "An AI-powered platform that automates ESG compliance reporting",
			Status:             store.RunStatusComplete,
			Stats:              &store.RunStats{Qualified: 12, ValidLeads: 30},
			CreatedAt:          now,
			UpdatedAt:          now.Add(2 * time.Minute),
		},
		{
			ID:                 "def12345-6789-0000-0000-000000000000",
			ProductDescription: "Solar leasing",
			Status:             store.RunStatusRunning,
			CreatedAt:          now.Add(-1 * time.Hour),
			UpdatedAt:          now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "PRODUCT")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "An AI-powered platform that...")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "Solar leasing")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "30")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
