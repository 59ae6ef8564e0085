package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/qvarlab/qvar/internal/clients/backend"
	"github.com/qvarlab/qvar/internal/database"
)

// SystemHandlers serves system monitoring endpoints.
type SystemHandlers struct {
	log           zerolog.Logger
	dataDir       string
	db            *database.DB
	backendStatus *backend.StatusClient
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB, backendStatus *backend.StatusClient) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("handler", "system").Logger(),
		dataDir:       dataDir,
		db:            db,
		backendStatus: backendStatus,
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	backendInfo := map[string]interface{}{
		"configured": h.backendStatus != nil,
	}
	if h.backendStatus != nil {
		status, fresh := h.backendStatus.LastStatus()
		backendInfo["connected"] = h.backendStatus.Connected()
		backendInfo["fresh"] = fresh
		if fresh {
			backendInfo["online"] = status.Online
			backendInfo["backends"] = status.Backends
			backendInfo["queue_depth"] = status.QueueDepth
		}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"cpu_percent":    cpuPercent,
			"memory_percent": memPercent,
			"goroutines":     runtime.NumGoroutine(),
			"backend":        backendInfo,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats handles GET /api/system/database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	sizeMB := 0.0
	if info, err := os.Stat(h.db.Path()); err == nil {
		sizeMB = float64(info.Size()) / 1024 / 1024
	}

	stats := h.db.Conn().Stats()
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"path":             h.db.Path(),
			"size_mb":          sizeMB,
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
