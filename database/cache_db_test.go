package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"memer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemeCacheSaveAndGet(t *testing.T) {
	ctx := context.Background()
	m, err := OpenMemeCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer m.Close()

	now := time.Unix(1_700_000_000, 0)
	posts := []models.Post{
		{PostID: "a", Subreddit: "memes", Title: "cat one", URL: "https://i.redd.it/a.jpg"},
		{PostID: "b", Subreddit: "memes", Title: "cat two", URL: "https://i.redd.it/b.jpg", Author: "bob"},
	}
	require.NoError(t, m.Save(ctx, "Cat", posts, false, now))
	require.NoError(t, m.Save(ctx, "cat", posts[:1], true, now))

	got, err := m.Get(ctx, "CAT", false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, cp := range got {
		assert.Equal(t, "cat", cp.Keyword)
		assert.Equal(t, now.Unix(), cp.CachedAt.Unix())
	}

	sfw, nsfw, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sfw)
	assert.Equal(t, 0, nsfw)
}

func TestMemeCacheSaveOverwritesSamePost(t *testing.T) {
	ctx := context.Background()
	m, err := OpenMemeCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer m.Close()

	p := models.Post{PostID: "a", Subreddit: "memes", Title: "old"}
	require.NoError(t, m.Save(ctx, "dog", []models.Post{p}, false, time.Unix(100, 0)))
	p.Title = "new"
	require.NoError(t, m.Save(ctx, "dog", []models.Post{p}, false, time.Unix(200, 0)))

	got, err := m.Get(ctx, "dog", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Title)
}

func TestFlushExpired(t *testing.T) {
	ctx := context.Background()
	m, err := OpenMemeCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer m.Close()

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	require.NoError(t, m.Save(ctx, "old", []models.Post{{PostID: "o", Subreddit: "memes"}}, false, old))
	require.NoError(t, m.Save(ctx, "fresh", []models.Post{{PostID: "f", Subreddit: "memes"}}, false, fresh))

	n, err := m.FlushExpired(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := m.Get(ctx, "old", false)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = m.Get(ctx, "fresh", false)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
