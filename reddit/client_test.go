package reddit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"memer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewHTTPClient(models.RedditConfig{
		UserAgent:         "memer-test",
		RetryAttempts:     3,
		RetryBase:         time.Millisecond,
		RequestsPerSecond: 1000,
	})
	c.base = srv.URL
	return c
}

func TestSearchSendsRestrictedQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/memes/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "cat", q.Get("q"))
		assert.Equal(t, "1", q.Get("restrict_sr"))
		assert.Equal(t, "new", q.Get("sort"))
		assert.Equal(t, "1", q.Get("raw_json"))
		assert.Equal(t, "memer-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"data": {"children": [{"kind": "t3", "data": {"id": "x", "title": "cat"}}]}}`))
	})

	posts, err := c.Search(context.Background(), "r/memes", "cat", 50)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "x", posts[0].PostID)
}

func TestListingTopUsesAllTime(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/memes/top.json", r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("t"))
		w.Write([]byte(`{"data": {"children": []}}`))
	})

	posts, err := c.Listing(context.Background(), "memes", "top", 75)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": {"children": []}}`))
	})

	_, err := c.Listing(context.Background(), "memes", "hot", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.About(context.Background(), "doesnotexist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "about", fe.Op)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRetriesGiveUpAfterAttempts(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Listing(context.Background(), "memes", "hot", 10)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 3, fe.Attempts)
	var se *statusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestForbiddenIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Listing(context.Background(), "private", "hot", 10)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestAboutRejectsNonSubredditDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "Listing", "data": {"children": []}}`))
	})

	_, err := c.About(context.Background(), "search")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRandomEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	p, err := c.Random(context.Background(), "memes")
	require.NoError(t, err)
	assert.Nil(t, p)
}
