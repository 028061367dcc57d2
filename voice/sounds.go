package voice

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Supported file extensions.
var (
	AudioExts = []string{".mp3", ".wav", ".ogg", ".mp4", ".webm"}
	BeepExts  = []string{".mp3", ".wav", ".ogg"}
)

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// ListSounds returns the sorted file names in dir with one of exts. A
// missing directory yields an empty list.
func ListSounds(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sounds in %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && hasExt(e.Name(), exts) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RandomSound picks one file from names.
func RandomSound(names []string) (string, bool) {
	if len(names) == 0 {
		return "", false
	}
	return names[rand.IntN(len(names))], true
}

// SafeJoin joins dir and name, rejecting names that escape dir.
func SafeJoin(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid sound name %q", name)
	}
	return filepath.Join(dir, name), nil
}

// Library caches the file list of one sound folder.
type Library struct {
	Dir  string
	exts []string

	mu    sync.RWMutex
	names []string
}

// NewLibrary scans dir once.
func NewLibrary(dir string, exts []string) (*Library, error) {
	l := &Library{Dir: dir, exts: exts}
	if _, err := l.Reload(); err != nil {
		return l, err
	}
	return l, nil
}

// Reload rescans the folder and returns the number of files found.
func (l *Library) Reload() (int, error) {
	names, err := ListSounds(l.Dir, l.exts)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.names = names
	l.mu.Unlock()
	return len(names), nil
}

// Names returns a copy of the cached file names.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.names...)
}

// Has reports whether name is in the library.
func (l *Library) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := sort.SearchStrings(l.names, name)
	return i < len(l.names) && l.names[i] == name
}

// Path resolves a library file to its path on disk.
func (l *Library) Path(name string) (string, error) {
	if !l.Has(name) {
		return "", fmt.Errorf("unknown sound %q", name)
	}
	return SafeJoin(l.Dir, name)
}

// Random picks a file at random.
func (l *Library) Random() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return RandomSound(l.names)
}

// Search returns up to limit names containing query, case-insensitively.
func (l *Library) Search(query string, limit int) []string {
	query = strings.ToLower(query)
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []string
	for _, n := range l.names {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(n), query) {
			out = append(out, n)
		}
	}
	return out
}
