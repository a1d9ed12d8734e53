package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestStatusCmd_Overview(t *testing.T) {
	fake := &fakeRetriever{
		metaCount: 3,
		stats: domain.IndexStats{
			SourceID:   "notes",
			ChunkCount: 7,
			Duration:   2 * time.Second,
		},
	}
	cleanup := setupTestServices(fake)
	defer cleanup()

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed sources:   3")
	assert.Contains(t, out, "Last pass:         notes")
	assert.Contains(t, out, "chunks:          7")
}

func TestStatusCmd_SingleSource(t *testing.T) {
	fake := &fakeRetriever{hasContent: true}
	cleanup := setupTestServices(fake)
	defer cleanup()

	out, err := execute(t, "status", "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "notes: indexed")

	fake.hasContent = false
	out, err = execute(t, "status", "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "notes: not indexed")
}
