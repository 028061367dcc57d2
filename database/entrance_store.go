package database

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"memer/models"
)

// EntranceStore keeps user entrance sounds in a JSON file and reloads it when
// the file is edited by hand.
type EntranceStore struct {
	path    string
	mutex   sync.Mutex
	data    map[string]models.EntranceConfig
	modTime time.Time
}

// NewEntranceStore returns a store backed by path. The file may not exist yet.
func NewEntranceStore(path string) *EntranceStore {
	return &EntranceStore{path: path, data: make(map[string]models.EntranceConfig)}
}

// reload re-reads the file when its mtime moved. Caller holds the mutex.
func (es *EntranceStore) reload() error {
	info, err := os.Stat(es.path)
	if os.IsNotExist(err) {
		es.data = make(map[string]models.EntranceConfig)
		es.modTime = time.Time{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat entrance data: %w", err)
	}
	if info.ModTime().Equal(es.modTime) {
		return nil
	}

	raw, err := os.ReadFile(es.path)
	if err != nil {
		return fmt.Errorf("failed to read entrance data: %w", err)
	}
	data := make(map[string]models.EntranceConfig)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("failed to parse entrance data: %w", err)
		}
	}
	es.data = data
	es.modTime = info.ModTime()
	return nil
}

// Get returns the user's entrance config.
func (es *EntranceStore) Get(userID string) (models.EntranceConfig, bool, error) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	if err := es.reload(); err != nil {
		return models.EntranceConfig{}, false, err
	}
	cfg, ok := es.data[userID]
	if ok && cfg.Volume <= 0 {
		cfg.Volume = 1.0
	}
	return cfg, ok, nil
}

// Set stores cfg for userID and writes the file.
func (es *EntranceStore) Set(userID string, cfg models.EntranceConfig) error {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	if err := es.reload(); err != nil {
		return err
	}
	es.data[userID] = cfg
	return es.save()
}

// Remove deletes userID's entry. It returns false when there was none.
func (es *EntranceStore) Remove(userID string) (bool, error) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	if err := es.reload(); err != nil {
		return false, err
	}
	if _, ok := es.data[userID]; !ok {
		return false, nil
	}
	delete(es.data, userID)
	return true, es.save()
}

func (es *EntranceStore) save() error {
	if err := writeJSON(es.path, es.data); err != nil {
		return err
	}
	if info, err := os.Stat(es.path); err == nil {
		es.modTime = info.ModTime()
	}
	return nil
}
