package voice

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// AudioCache keeps encoded opus frames of recently played clips.
type AudioCache struct {
	lru  *lru.Cache[string, [][]byte]
	size int
}

// NewAudioCache holds up to size clips, 100 when size <= 0.
func NewAudioCache(size int) (*AudioCache, error) {
	if size <= 0 {
		size = 100
	}
	c, err := lru.New[string, [][]byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio cache: %w", err)
	}
	return &AudioCache{lru: c, size: size}, nil
}

func cacheKey(path string, volume float64) string {
	return fmt.Sprintf("%s|%.2f", path, volume)
}

// Get returns cached frames for path at volume.
func (c *AudioCache) Get(path string, volume float64) ([][]byte, bool) {
	return c.lru.Get(cacheKey(path, volume))
}

// Add stores frames, evicting the least recently used clip when full.
func (c *AudioCache) Add(path string, volume float64, frames [][]byte) {
	c.lru.Add(cacheKey(path, volume), frames)
}

// Purge drops every clip.
func (c *AudioCache) Purge() {
	c.lru.Purge()
}

// Info renders the cache fill for admin replies.
func (c *AudioCache) Info() string {
	return fmt.Sprintf("🔊 Audio cache: %d/%d clips", c.lru.Len(), c.size)
}
