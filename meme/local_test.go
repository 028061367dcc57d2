package meme

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func TestLocalFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sfw.json"),
		[]byte(`[{"post_id": "l1", "subreddit": "memes", "title": "local", "url": "https://i.redd.it/l1.png"}]`), 0o644))

	p, ok, err := LocalFallback(dir, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "l1", p.PostID)
	assert.Equal(t, "[deleted]", p.Author)

	_, ok, err = LocalFallback(dir, true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = LocalFallback("", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalFallbackRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nsfw.json"), []byte(`{`), 0o644))

	_, ok, err := LocalFallback(dir, true)
	assert.Error(t, err)
	assert.False(t, ok)
}
