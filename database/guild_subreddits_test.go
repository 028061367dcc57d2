package database

import (
	"os"
	"path/filepath"
	"testing"

	"memer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildSubredditsDefaults(t *testing.T) {
	gs, err := LoadGuildSubreddits(filepath.Join(t.TempDir(), "subs.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSubreddits.SFW, gs.Get("g1", models.KindSFW))
	assert.Equal(t, DefaultSubreddits.NSFW, gs.Get("g1", models.KindNSFW))
	assert.True(t, gs.Contains("g1", models.KindSFW, "MEMES"))
}

func TestGuildSubredditsAddRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	gs, err := LoadGuildSubreddits(path)
	require.NoError(t, err)

	assert.True(t, gs.Add("g1", models.KindSFW, "ProgrammerHumor"))
	assert.False(t, gs.Add("g1", models.KindSFW, "programmerhumor"))
	assert.Len(t, gs.Get("g1", models.KindSFW), len(DefaultSubreddits.SFW)+1)
	assert.Equal(t, DefaultSubreddits.SFW, gs.Get("g2", models.KindSFW))

	assert.True(t, gs.Remove("g1", models.KindSFW, "FUNNY"))
	assert.False(t, gs.Remove("g1", models.KindSFW, "funny"))
	assert.False(t, gs.Contains("g1", models.KindSFW, "funny"))
	assert.Contains(t, gs.All(models.KindSFW), "funny")
	assert.Contains(t, gs.All(models.KindSFW), "ProgrammerHumor")

	require.NoError(t, gs.Persist())
	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := LoadGuildSubreddits(path)
	require.NoError(t, err)
	assert.Equal(t, gs.Get("g1", models.KindSFW), reloaded.Get("g1", models.KindSFW))
}

func TestGuildSubredditsPersistSkipsCleanState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	gs, err := LoadGuildSubreddits(path)
	require.NoError(t, err)

	require.NoError(t, gs.Persist())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
