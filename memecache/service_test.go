package memecache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"memer/models"
	"memer/reddit/reddittest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSubs map[string][]string

func (s staticSubs) All(kind string) []string { return s[kind] }

func TestRefreshRescansKeywordsAndClearsDisabled(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot",
		models.Post{PostID: "1", Title: "A cat meme", URL: "u1"},
		models.Post{PostID: "2", Title: "A dog meme", URL: "u2"},
		models.Post{PostID: "3", Title: "NSFW cat", URL: "u3", IsNSFW: true},
	)
	client.AddListing("funny", "hot", models.Post{PostID: "4", Title: "CAT again", URL: "u4"})

	cfg := testConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "cache.db")
	cfg.MaxConcurrent = 5
	cfg.FetchConcurrency = 2

	svc := NewService(client, staticSubs{models.KindSFW: {"memes", "funny"}}, cfg)
	require.NoError(t, svc.Init())
	t.Cleanup(func() { svc.Close() })

	svc.Manager.CacheToRAM("cat", nil, false)
	svc.Manager.RecordFailure("dog", false)
	svc.Manager.RecordFailure("dog", false)
	require.True(t, svc.Manager.IsDisabled("dog", false))

	ctx := context.Background()
	svc.Refresh(ctx)

	got := svc.Manager.GetFromRAM("cat", false)
	ids := []string{}
	for _, p := range got {
		ids = append(ids, p.PostID)
	}
	assert.ElementsMatch(t, []string{"1", "4"}, ids)
	assert.False(t, svc.Manager.IsDisabled("dog", false))

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.RAMSFWKeywords)
	assert.Equal(t, 2, info.RAMSFWPosts)
	assert.Equal(t, 2, info.DiskSFW)
	assert.Contains(t, info.String(), "Disabled keywords: 0")
}

func TestApplyDuringRefresh(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", models.Post{PostID: "1", Title: "cat", URL: "u1"})

	cfg := testConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "cache.db")
	svc := NewService(client, staticSubs{models.KindSFW: {"memes"}}, cfg)
	require.NoError(t, svc.Init())
	t.Cleanup(func() { svc.Close() })
	svc.Manager.CacheToRAM("cat", nil, false)

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			next := cfg
			next.MaxConcurrent = i
			next.FetchConcurrency = i
			svc.Apply(next)
		}()
		go func() {
			defer wg.Done()
			svc.Refresh(context.Background())
		}()
	}
	wg.Wait()

	cfg.MaxConcurrent = 42
	svc.Apply(cfg)
	assert.Equal(t, 42, svc.config().MaxConcurrent)
	assert.Len(t, svc.Manager.GetFromRAM("cat", false), 1)
}
