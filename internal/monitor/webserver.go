package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/sensor.fusion/internal/fusion"
	"github.com/banshee-data/sensor.fusion/internal/tracking"
	"github.com/banshee-data/sensor.fusion/internal/version"
)

const defaultHistory = 600

// AdminRouter is anything that mounts its own debug routes.
type AdminRouter interface {
	AttachAdminRoutes(mux *http.ServeMux)
}

// WebServer serves the fusion status API and the debug charts. It is also a
// fusion.Sink: every consumed result becomes the latest status.
type WebServer struct {
	address  string
	pipeline *fusion.Pipeline
	server   *http.Server
	started  time.Time

	mu        sync.RWMutex
	latest    fusion.Result
	seen      bool
	residuals []residualPoint
	history   int
}

type residualPoint struct {
	Seq  uint64
	Mean float64
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address  string
	Pipeline *fusion.Pipeline
	History  int // residual points kept for the plot
	Admin    []AdminRouter
}

// Status is the body of /api/fusion/status.
type Status struct {
	Version  string           `json:"version"`
	Build    string           `json:"build"`
	Uptime   string           `json:"uptime"`
	Ticking  bool             `json:"ticking"`
	Latest   fusion.Result    `json:"latest"`
	Tracks   tracking.Metrics `json:"tracks"`
	Pipeline fusion.StepStats `json:"pipeline"`
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	history := config.History
	if history <= 0 {
		history = defaultHistory
	}
	ws := &WebServer{
		address:  config.Address,
		pipeline: config.Pipeline,
		history:  history,
		started:  time.Now(),
	}
	if config.Pipeline != nil {
		ws.latest = config.Pipeline.Orchestrator().Last()
	}

	mux := ws.setupRoutes()
	for _, a := range config.Admin {
		a.AttachAdminRoutes(mux)
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// Handler returns the route table.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Consume records a tick result for the status and plot endpoints. Results
// from before the last reset seen are dropped.
func (ws *WebServer) Consume(_ context.Context, r fusion.Result) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if r.Generation < ws.latest.Generation {
		return nil
	}
	ws.latest = r
	ws.seen = true
	if r.Discarded {
		return nil
	}
	ws.residuals = append(ws.residuals, residualPoint{Seq: r.Seq, Mean: r.Report.MeanResidual})
	if over := len(ws.residuals) - ws.history; over > 0 {
		ws.residuals = append(ws.residuals[:0], ws.residuals[over:]...)
	}
	return nil
}

var _ fusion.Sink = (*WebServer)(nil)

// Start serves until ctx is cancelled, then shuts the server down.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/fusion/status", ws.handleStatus)
	mux.HandleFunc("/api/fusion/objects", ws.handleObjects)
	mux.HandleFunc("/api/fusion/reset", ws.handleReset)
	mux.HandleFunc("/debug/fusion/objects", ws.handleObjectsChart)
	mux.HandleFunc("/debug/fusion/residuals.png", ws.handleResidualPlot)

	return mux
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("monitor: failed to encode response: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	ws.writeJSON(w, status, map[string]string{"error": msg})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "fusion", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// status assembles the current view. Track metrics come straight from the
// bank so they reflect resets that no tick has reported yet.
func (ws *WebServer) status() Status {
	ws.mu.RLock()
	st := Status{
		Version: version.Version,
		Build:   version.String(),
		Uptime:  time.Since(ws.started).Round(time.Second).String(),
		Ticking: ws.seen,
		Latest:  ws.latest,
	}
	ws.mu.RUnlock()

	if ws.pipeline != nil {
		st.Tracks = ws.pipeline.Orchestrator().Bank().Metrics()
		st.Pipeline = ws.pipeline.Stats()
	}
	return st
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	ws.writeJSON(w, http.StatusOK, ws.status())
}

func (ws *WebServer) handleObjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	ws.mu.RLock()
	latest := ws.latest
	ws.mu.RUnlock()

	objects := latest.Objects
	if objects == nil {
		objects = []fusion.FusedObject{}
	}
	ws.writeJSON(w, http.StatusOK, map[string]any{
		"seq":     latest.Seq,
		"valid":   latest.Valid,
		"count":   latest.Count,
		"objects": objects,
	})
}

func (ws *WebServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if ws.pipeline == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	res := ws.pipeline.Reset()

	ws.mu.Lock()
	ws.latest = res
	ws.residuals = ws.residuals[:0]
	ws.mu.Unlock()

	log.Printf("monitor: fusion reset requested by %s", r.RemoteAddr)
	ws.writeJSON(w, http.StatusOK, res)
}
