package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koumartin/mundo-bot/internal/clash"
	"github.com/koumartin/mundo-bot/internal/storage"
)

func TestClashExistsGuardsProvisioning(t *testing.T) {
	repo, err := storage.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	date := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AddClash(&clash.Clash{
		Name:           "Spring Cup",
		GuildID:        "g1",
		Date:           date,
		ClashChannelID: "100",
		ChannelID:      "101",
		MessageID:      "102",
		RoleID:         "103",
	}, nil))

	exists, err := clashExists(repo, "g1", "Spring Cup")
	require.NoError(t, err)
	assert.True(t, exists)

	// Same name in another guild is fine, as is another name here.
	exists, err = clashExists(repo, "g2", "Spring Cup")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = clashExists(repo, "g1", "Summer Cup")
	require.NoError(t, err)
	assert.False(t, exists)
}
