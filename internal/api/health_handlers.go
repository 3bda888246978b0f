package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
)

// ========== Health handlers ==========

const healthPingTimeout = 5 * time.Second

// HandleHealth reports process status
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(s.startedAt).Seconds(),
		"environment": s.config.Server.Environment,
		"version":     s.config.Server.Version,
	})
}

// HandleLive is the liveness probe
func (s *RESTServer) HandleLive(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// HandleReady is the readiness probe; it fails while the database is unreachable
func (s *RESTServer) HandleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.pingDatabase(r.Context()); err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  "database unavailable",
		})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleDatabaseHealth reports database connectivity and round-trip time
func (s *RESTServer) HandleDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := s.pingDatabase(r.Context())
	if err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "disconnected",
			"error":  "database unavailable",
		})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "connected",
		"latency_ms": latency.Milliseconds(),
	})
}

// HandleDetailedHealth reports runtime and database details
func (s *RESTServer) HandleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := http.StatusOK
	overall := "ok"

	database := map[string]interface{}{}
	latency, err := s.pingDatabase(r.Context())
	if err != nil {
		status = http.StatusServiceUnavailable
		overall = "degraded"
		database["status"] = "disconnected"
	} else {
		database["status"] = "connected"
		database["latency_ms"] = latency.Milliseconds()
	}

	stats := s.store.Stats()
	database["pool"] = map[string]interface{}{
		"max_open":        stats.MaxOpenConnections,
		"open":            stats.OpenConnections,
		"in_use":          stats.InUse,
		"idle":            stats.Idle,
		"wait_count":      stats.WaitCount,
		"wait_ms":         stats.WaitDuration.Milliseconds(),
		"max_idle_closed": stats.MaxIdleClosed,
	}

	s.respondJSON(w, status, map[string]interface{}{
		"status":      overall,
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(s.startedAt).Seconds(),
		"environment": s.config.Server.Environment,
		"version":     s.config.Server.Version,
		"memory": map[string]interface{}{
			"alloc_bytes":      mem.Alloc,
			"sys_bytes":        mem.Sys,
			"heap_alloc_bytes": mem.HeapAlloc,
			"heap_inuse_bytes": mem.HeapInuse,
			"gc_count":         mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
		"database":   database,
	})
}

// pingDatabase runs a single ping; there are no retries
func (s *RESTServer) pingDatabase(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Database ping failed")
		return 0, err
	}
	return time.Since(start), nil
}
