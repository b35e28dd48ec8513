package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/megageek/esphome-espnow-pubsub/internal/diagnostics"
)

// healthResponse is the body of GET /api/v1/health.
type healthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// handleHealth reports overall process health plus per-component checks.
// The endpoint returns 200 as long as the core is up; a degraded optional
// sink is reported in the checks map, not as an HTTP failure.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"link": s.link.State().String(),
	}

	if s.journal != nil {
		if err := s.journal.HealthCheck(r.Context()); err != nil {
			checks["journal"] = err.Error()
		} else {
			checks["journal"] = "ok"
		}
	}
	if s.metrics != nil {
		if err := s.metrics.HealthCheck(r.Context()); err != nil {
			checks["influxdb"] = err.Error()
		} else {
			checks["influxdb"] = "ok"
		}
	}
	if s.bridge != nil {
		if s.bridge.IsConnected() {
			checks["bridge"] = "ok"
		} else {
			checks["bridge"] = "disconnected"
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   s.version,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// handleDiagnostics returns a point-in-time snapshot of the node and link.
func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, diagnostics.Collect(s.node, s.link))
}

// handleJournal returns recent status journal entries, newest first.
// Query parameters: limit (default 50, max 200).
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeBadRequest(w, "journal is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("journal query failed", "error", err)
		writeInternalError(w, "querying journal failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// publishRequest is the body of POST /api/v1/publish.
type publishRequest struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// handlePublish broadcasts a message onto the mesh. The publish itself is
// fire-and-forget; the response carries the node's resulting status line
// so operators can see immediately whether the send was accepted.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Topic == "" {
		writeBadRequest(w, "topic is required")
		return
	}

	s.node.Publish(req.Topic, []byte(req.Payload))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"topic":      req.Topic,
		"status":     s.node.LastStatus(),
		"sent_count": s.node.SentCount(),
	})
}
