package meme

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"memer/models"
)

// LocalFallback picks a random post from dir/sfw.json or dir/nsfw.json. It
// returns false when dir is unset, the file is missing or holds no posts.
func LocalFallback(dir string, nsfw bool) (models.Post, bool, error) {
	if dir == "" {
		return models.Post{}, false, nil
	}
	name := models.KindSFW + ".json"
	if nsfw {
		name = models.KindNSFW + ".json"
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return models.Post{}, false, nil
	}
	if err != nil {
		return models.Post{}, false, fmt.Errorf("failed to read local fallback %s: %w", name, err)
	}

	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return models.Post{}, false, fmt.Errorf("failed to parse local fallback %s: %w", name, err)
	}
	if len(posts) == 0 {
		return models.Post{}, false, nil
	}
	p := posts[rand.IntN(len(posts))]
	if p.Author == "" {
		p.Author = "[deleted]"
	}
	return p, true, nil
}
