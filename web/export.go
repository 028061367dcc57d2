package web

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"memer/models"
)

// StatsSource produces the dashboard snapshot.
type StatsSource interface {
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
}

// ExportStats writes the current snapshot to path. The file is replaced
// atomically so readers never see a partial document.
func ExportStats(ctx context.Context, src StatsSource, path string) error {
	stats, err := src.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace stats file: %w", err)
	}
	return nil
}
