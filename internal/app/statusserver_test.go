package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/history"
	"github.com/vk/pipegrid/internal/run"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yml")
	doc := "jobs:\n  - job: Build\n    steps:\n      - run: make\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := NewConfig(Config{
		PipelinePath: path,
		Event:        "push",
		Branch:       "main",
		LogFormat:    "text",
		LogLevel:     "error",
	})
	require.NoError(t, err)

	loader, err := config.ForPath(path)
	require.NoError(t, err)
	return NewApp(&bytes.Buffer{}, cfg, loader, nil)
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusHealth(t *testing.T) {
	a := newTestApp(t)
	rec := get(t, a.statusRouter(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestStatusBundles(t *testing.T) {
	a := newTestApp(t)
	a.publishBundles([]run.Bundle{{RunID: "r1", Job: "Build", Outcome: "Succeeded"}})

	rec := get(t, a.statusRouter(), "/bundles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var bundles []run.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundles))
	require.Len(t, bundles, 1)
	assert.Equal(t, "Build", bundles[0].Job)
}

func TestStatusRunsWithoutHistory(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, get(t, a.statusRouter(), "/runs").Code)
	assert.Equal(t, http.StatusNotFound, get(t, a.statusRouter(), "/runs/r1/cells").Code)
}

// The status server starts before Run installs the history store; handlers
// must observe the swap safely.
func TestStatusHistorySwapIsSafe(t *testing.T) {
	a := newTestApp(t)
	router := a.statusRouter()

	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	defer store.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			get(t, router, "/runs")
		}
	}()
	for i := 0; i < 200; i++ {
		a.setHistory(store)
		a.setHistory(nil)
	}
	<-done
}

func TestStatusRunsWithHistory(t *testing.T) {
	a := newTestApp(t)
	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	defer store.Close()
	a.setHistory(store)

	r := run.NewPipelineRun("p", run.EventPush, "main")
	r.Finished = r.Started.Add(time.Second)
	r.Jobs = []run.JobResult{{Job: "Build", Outcome: run.OutcomeSucceeded, Cells: []run.CellResult{
		{Cell: run.Cell{Name: "Build"}, Outcome: run.OutcomeSucceeded},
	}}}
	require.NoError(t, store.SaveRun(r))

	rec := get(t, a.statusRouter(), "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []history.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, r.ID, records[0].ID)

	rec = get(t, a.statusRouter(), "/runs/"+r.ID+"/cells")
	require.Equal(t, http.StatusOK, rec.Code)
	var cells []history.CellRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cells))
	require.Len(t, cells, 1)
	assert.Equal(t, "Build", cells[0].Job)
}
