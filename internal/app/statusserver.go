package app

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// statusRouter builds the status server's route table.
func (a *App) statusRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", a.handleHealth)
	r.Get("/bundles", a.handleBundles)
	r.Get("/runs", a.handleRuns)
	r.Get("/runs/{id}/cells", a.handleRunCells)
	return r
}

// startStatusServer runs the HTTP status server in the background. It
// exposes liveness plus, when the history store is enabled, recent runs.
func (a *App) startStatusServer(port int) {
	r := a.statusRouter()
	addr := fmt.Sprintf(":%d", port)
	go func() {
		a.logger.Info("🩺 Status server starting.", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := http.ListenAndServe(addr, r); err != nil {
			a.logger.Error("Status server failed.", "error", err)
		}
	}()
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// handleBundles serves the per-job result bundles of the last finished run.
func (a *App) handleBundles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.Bundles())
}

func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	store := a.historyStore()
	if store == nil {
		http.Error(w, "run history not enabled", http.StatusNotFound)
		return
	}
	records, err := store.ListRuns(50)
	if err != nil {
		a.logger.Error("Listing run history failed.", "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (a *App) handleRunCells(w http.ResponseWriter, r *http.Request) {
	store := a.historyStore()
	if store == nil {
		http.Error(w, "run history not enabled", http.StatusNotFound)
		return
	}
	cells, err := store.ListCells(chi.URLParam(r, "id"))
	if err != nil {
		a.logger.Error("Listing run cells failed.", "error", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, cells)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
