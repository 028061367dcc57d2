package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStats struct {
	stats models.DashboardStats
	err   error
}

func (s staticStats) DashboardStats(context.Context) (models.DashboardStats, error) {
	return s.stats, s.err
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHealthz(t *testing.T) {
	s := NewServer("127.0.0.1:0", filepath.Join(t.TempDir(), "stats.json"))
	srv := s.Router()

	code, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)
}

func TestStatsMissingFile(t *testing.T) {
	s := NewServer("127.0.0.1:0", filepath.Join(t.TempDir(), "stats.json"))
	srv := s.Router()

	code, _ := get(t, srv, "/stats")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestStatsReloadsOnMtimeChangeAfterInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	require.NoError(t, ExportStats(context.Background(), staticStats{stats: models.DashboardStats{TotalMemes: 1}}, path))

	now := time.Unix(1_700_000_000, 0)
	s := NewServer("127.0.0.1:0", path)
	s.now = func() time.Time { return now }
	srv := s.Router()

	decode := func() models.DashboardStats {
		code, body := get(t, srv, "/stats")
		require.Equal(t, http.StatusOK, code)
		var out models.DashboardStats
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		return out
	}
	assert.EqualValues(t, 1, decode().TotalMemes)

	require.NoError(t, ExportStats(context.Background(), staticStats{stats: models.DashboardStats{TotalMemes: 2}}, path))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	now = now.Add(30 * time.Second)
	assert.EqualValues(t, 1, decode().TotalMemes, "cached inside the interval")

	now = now.Add(31 * time.Second)
	assert.EqualValues(t, 2, decode().TotalMemes)
}

func TestExportStatsPropagatesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	err := ExportStats(context.Background(), staticStats{err: errors.New("db closed")}, path)
	assert.ErrorContains(t, err, "db closed")
	assert.NoFileExists(t, path)
}
