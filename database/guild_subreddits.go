package database

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"memer/models"
)

// DefaultSubreddits apply to guilds without their own list.
var DefaultSubreddits = models.SubredditLists{
	SFW: []string{
		"memes", "dankmemes", "funny", "wholesomememes",
		"MemeEconomy", "me_irl", "comedyheaven", "AdviceAnimals",
		"memesopdidnotlike", "trashy", "terriblefacebookmemes", "okbuddyretard",
	},
	NSFW: []string{
		"nsfwmemes", "dirtymemes", "gonewild", "NSFW_GIF",
		"SexySexymemes", "lewdanime", "EcchiMemes", "sexmemes",
		"Rule34LoL", "funhornymemes", "spicymemes",
	},
}

// GuildSubreddits manages the per-guild subreddit lists file.
type GuildSubreddits struct {
	path  string
	mutex sync.Mutex
	data  map[string]*models.SubredditLists
	dirty bool
}

// LoadGuildSubreddits reads path if it exists.
func LoadGuildSubreddits(path string) (*GuildSubreddits, error) {
	gs := &GuildSubreddits{path: path, data: make(map[string]*models.SubredditLists)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return gs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guild subreddits: %w", err)
	}
	if err := json.Unmarshal(raw, &gs.data); err != nil {
		return nil, fmt.Errorf("failed to parse guild subreddits: %w", err)
	}
	return gs, nil
}

func listFor(l *models.SubredditLists, kind string) *[]string {
	if kind == models.KindNSFW {
		return &l.NSFW
	}
	return &l.SFW
}

// Get returns a copy of the guild's list of the given kind.
func (gs *GuildSubreddits) Get(guildID, kind string) []string {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	src := *listFor(&DefaultSubreddits, kind)
	if l, ok := gs.data[guildID]; ok && *listFor(l, kind) != nil {
		src = *listFor(l, kind)
	}
	return append([]string(nil), src...)
}

// Contains reports whether name is in the guild's list, ignoring case.
func (gs *GuildSubreddits) Contains(guildID, kind, name string) bool {
	for _, s := range gs.Get(guildID, kind) {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// seed copies the defaults for a guild seen for the first time.
func (gs *GuildSubreddits) seed(guildID string) *models.SubredditLists {
	l, ok := gs.data[guildID]
	if !ok {
		l = &models.SubredditLists{
			SFW:  append([]string(nil), DefaultSubreddits.SFW...),
			NSFW: append([]string(nil), DefaultSubreddits.NSFW...),
		}
		gs.data[guildID] = l
	}
	return l
}

// Add appends name; it returns false when the name is already listed.
func (gs *GuildSubreddits) Add(guildID, kind, name string) bool {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	list := listFor(gs.seed(guildID), kind)
	for _, s := range *list {
		if strings.EqualFold(s, name) {
			return false
		}
	}
	*list = append(*list, name)
	gs.dirty = true
	return true
}

// Remove deletes name; it returns false when the name was not listed.
func (gs *GuildSubreddits) Remove(guildID, kind, name string) bool {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	list := listFor(gs.seed(guildID), kind)
	for i, s := range *list {
		if strings.EqualFold(s, name) {
			*list = append((*list)[:i], (*list)[i+1:]...)
			gs.dirty = true
			return true
		}
	}
	return false
}

// All returns every distinct subreddit of kind across defaults and guilds.
func (gs *GuildSubreddits) All(kind string) []string {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	seen := make(map[string]string)
	for _, s := range *listFor(&DefaultSubreddits, kind) {
		seen[strings.ToLower(s)] = s
	}
	for _, l := range gs.data {
		for _, s := range *listFor(l, kind) {
			if _, ok := seen[strings.ToLower(s)]; !ok {
				seen[strings.ToLower(s)] = s
			}
		}
	}
	out := make([]string, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Persist writes the file when something changed since the last write.
func (gs *GuildSubreddits) Persist() error {
	gs.mutex.Lock()
	defer gs.mutex.Unlock()

	if !gs.dirty {
		return nil
	}
	if err := writeJSON(gs.path, gs.data); err != nil {
		return err
	}
	gs.dirty = false
	return nil
}

// writeJSON replaces path with the indented JSON encoding of v.
func writeJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
