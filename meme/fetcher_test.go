package meme

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"memer/memecache"
	"memer/models"
	"memer/reddit/reddittest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func img(sub, id, title string) models.Post {
	u := "https://i.redd.it/" + id + ".jpg"
	return models.Post{PostID: id, Subreddit: sub, Title: title, URL: u, MediaURL: u, Author: "op"}
}

func cacheCfg() models.CacheConfig {
	return models.CacheConfig{
		RAMCacheTTL:         time.Hour,
		DiskCacheTTL:        time.Hour,
		KeywordDisableAfter: 1,
		KeywordDisableTTL:   time.Hour,
		ListingLimit:        75,
		FetchConcurrency:    2,
		MaxConcurrent:       5,
	}
}

func newFetcher(client *reddittest.Fake, warm *WarmBuffer) *Fetcher {
	return NewFetcher(client, warm, cacheCfg(), models.RedditConfig{Listings: []string{"hot"}})
}

func TestKeywordWithNoMatchesReturnsNoneAndDisables(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "1", "a dog"), img("memes", "2", "education"))
	client.AddListing("funny", "hot", img("funny", "3", "another dog"))

	cache := memecache.NewRedditCacheManager(nil, cacheCfg())
	f := newFetcher(client, nil)
	ctx := context.Background()

	res := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes", "funny"}, Keyword: "cat", Cache: cache})
	assert.Equal(t, models.PickedNone, res.PickedVia)
	assert.Nil(t, res.Post)
	assert.False(t, res.Found())
	assert.Contains(t, res.Errors, "no valid posts")
	assert.True(t, cache.IsDisabled("cat", false))

	searches := client.CallCount("search:")
	res = f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes", "funny"}, Keyword: "cat", Cache: cache})
	assert.Equal(t, models.PickedNone, res.PickedVia)
	assert.Equal(t, []string{"disabled"}, res.Errors)
	assert.Equal(t, searches, client.CallCount("search:"), "disabled keyword never reaches Reddit")
}

func TestKeywordLiveHitIsCached(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "1", "My cat"), img("memes", "2", "cat again"), img("memes", "3", "dog"))

	cache := memecache.NewRedditCacheManager(nil, cacheCfg())
	f := newFetcher(client, nil)
	ctx := context.Background()

	first := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}, Keyword: "Cat", Cache: cache})
	require.True(t, first.Found())
	assert.Equal(t, models.PickedLive, first.PickedVia)
	assert.Equal(t, "search", first.Listing)
	assert.Len(t, cache.GetFromRAM("cat", false), 2)

	second := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}, Keyword: "cat", Cache: cache})
	require.True(t, second.Found())
	assert.Equal(t, models.PickedCache, second.PickedVia)
	assert.Equal(t, "cache_ram", second.Listing)
	assert.NotEqual(t, first.Post.PostID, second.Post.PostID)

	// Both cached posts were served inside the recency window.
	third := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}, Keyword: "cat", Cache: cache})
	assert.False(t, third.Found())
	assert.NotEqual(t, "cache_ram", third.Listing)
}

func TestKeywordFallsBackToListingScan(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "1", "cat"))
	client.SearchResults["memes/cat"] = nil

	f := newFetcher(client, nil)
	res := f.Fetch(context.Background(), FetchRequest{Subreddits: []string{"memes"}, Keyword: "cat"})
	require.True(t, res.Found())
	assert.Equal(t, "hot", res.Listing)
}

func TestCachedPostsOutsideCandidatesAreIgnored(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot")

	cache := memecache.NewRedditCacheManager(nil, cacheCfg())
	cache.CacheToRAM("cat", []models.Post{img("othersub", "9", "cat")}, false)

	f := newFetcher(client, nil)
	res := f.Fetch(context.Background(), FetchRequest{Subreddits: []string{"memes"}, Keyword: "cat", Cache: cache})
	assert.Equal(t, models.PickedNone, res.PickedVia)
}

func TestWordBoundaryMatching(t *testing.T) {
	assert.True(t, MatchesKeyword("A CAT appears", "cat"))
	assert.False(t, MatchesKeyword("education", "cat"))
	assert.True(t, MatchesKeyword("c++ is hard", "c++"))
	assert.True(t, MatchesKeyword("anything", ""))
}

func TestRecentPostsAreNeverRepeated(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "1", "a"), img("memes", "2", "b"), img("memes", "3", "c"))

	f := newFetcher(client, nil)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		res := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}})
		require.True(t, res.Found(), "fetch %d", i)
		assert.False(t, seen[res.Post.PostID], "post %s served twice", res.Post.PostID)
		seen[res.Post.PostID] = true
	}

	res := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}})
	assert.Equal(t, models.PickedNone, res.PickedVia)
	assert.Equal(t, []string{"All fallback failed"}, res.Errors)
}

func TestExcludeIDsAndFilters(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "1", "a"), img("memes", "2", "b"), img("memes", "3", "c"))

	f := newFetcher(client, nil)
	res := f.Fetch(context.Background(), FetchRequest{
		Subreddits: []string{"memes"},
		ExcludeIDs: []string{"1"},
		Filters:    []Filter{func(p models.Post) bool { return p.PostID != "2" }},
	})
	require.True(t, res.Found())
	assert.Equal(t, "3", res.Post.PostID)
	assert.Equal(t, models.PickedFallback, res.PickedVia)
}

func TestWarmBufferIsPreferredAndFeedsRandomPool(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "live", "live"))

	warm := NewWarmBuffer(cacheCfg())
	warm.Push("memes", "hot", img("memes", "w1", "warm"))

	cache := memecache.NewRedditCacheManager(nil, cacheCfg())
	f := newFetcher(client, warm)
	ctx := context.Background()

	res := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}, Cache: cache})
	require.True(t, res.Found())
	assert.Equal(t, models.PickedWarm, res.PickedVia)
	assert.Equal(t, "w1", res.Post.PostID)
	assert.Equal(t, 0, client.CallCount("listing:"))

	pool := cache.GetFromRAM(memecache.RandomKey, false)
	require.Len(t, pool, 1)
	assert.Equal(t, "w1", pool[0].PostID)
}

func TestLiveListingLeftoversFillWarmBuffer(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "a", "a"), img("memes", "b", "b"))

	warm := NewWarmBuffer(cacheCfg())
	f := newFetcher(client, warm)
	ctx := context.Background()

	first := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}})
	require.True(t, first.Found())
	assert.Equal(t, models.PickedFallback, first.PickedVia)
	assert.Equal(t, 1, warm.Len("memes_hot"))
	calls := client.CallCount("listing:")

	second := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}})
	require.True(t, second.Found())
	assert.Equal(t, models.PickedWarm, second.PickedVia)
	assert.NotEqual(t, first.Post.PostID, second.Post.PostID)
	assert.Equal(t, calls, client.CallCount("listing:"))
	assert.Equal(t, 0, warm.Len("memes_hot"))
}

func TestRandomPoolServedFirst(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot", img("memes", "live", "live"))

	cache := memecache.NewRedditCacheManager(nil, cacheCfg())
	cache.CacheToRAM(memecache.RandomKey, []models.Post{img("memes", "p1", "pooled")}, false)

	f := newFetcher(client, nil)
	ctx := context.Background()

	res := f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}, Cache: cache})
	require.True(t, res.Found())
	assert.Equal(t, models.PickedCache, res.PickedVia)
	assert.Equal(t, "cache_ram", res.Listing)

	res = f.Fetch(ctx, FetchRequest{Subreddits: []string{"memes"}, Cache: cache})
	require.True(t, res.Found())
	assert.Equal(t, "live", res.Post.PostID, "pooled post was just served")
}

func TestSimpleRandomFallsBackToHot(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot",
		models.Post{PostID: "t", Title: "text", URL: "https://reddit.com/r/memes/comments/t"},
		img("memes", "i", "image"),
	)
	client.RandomErr = errors.New("random not supported")

	f := newFetcher(client, nil)
	p, err := f.SimpleRandom(context.Background(), "memes")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "i", p.PostID)
}

func TestSimpleRandomUsesRandomPrimitive(t *testing.T) {
	client := reddittest.New()
	client.AddListing("memes", "hot")
	r := img("memes", "r", "random")
	client.RandomPosts["memes"] = &r

	f := newFetcher(client, nil)
	p, err := f.SimpleRandom(context.Background(), "memes")
	require.NoError(t, err)
	assert.Equal(t, "r", p.PostID)
	assert.Equal(t, 0, client.CallCount("listing:"))
}

func TestSimpleRandomUnknownSubreddit(t *testing.T) {
	f := newFetcher(reddittest.New(), nil)
	p, err := f.SimpleRandom(context.Background(), "nope")
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestFetchWithNoSubredditsFailsSoftly(t *testing.T) {
	f := newFetcher(reddittest.New(), nil)
	res := f.Fetch(context.Background(), FetchRequest{})
	assert.Equal(t, models.PickedNone, res.PickedVia)
	assert.Nil(t, res.Post)
}

func ExampleMatchesKeyword() {
	fmt.Println(MatchesKeyword("Cats and dogs", "cat"), MatchesKeyword("my cat", "cat"))
	// Output: false true
}
