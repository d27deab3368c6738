package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/clients/finnhub"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/modules/symbols"
	"github.com/aristath/papertrade/internal/scheduler"
)

// BackupRunner triggers an on-demand backup
type BackupRunner interface {
	CreateAndUpload(ctx context.Context) error
}

// SystemHandlers serves the health and operations endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	startup   time.Time
	coreDB    *database.DB
	marketDB  *database.DB
	cacheDB   *database.DB
	scheduler *scheduler.Scheduler
	importer  *symbols.ImportService

	// Optional collaborators, wired after construction when configured
	priceStream *PriceStreamHandler
	liveFeed    *finnhub.WebSocket
	backups     BackupRunner
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	coreDB, marketDB, cacheDB *database.DB,
	sched *scheduler.Scheduler,
	importer *symbols.ImportService,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		startup:   time.Now(),
		coreDB:    coreDB,
		marketDB:  marketDB,
		cacheDB:   cacheDB,
		scheduler: sched,
		importer:  importer,
	}
}

// SetPriceStream wires the SSE handler so status can report client counts
func (h *SystemHandlers) SetPriceStream(stream *PriceStreamHandler) {
	h.priceStream = stream
}

// SetLiveFeed wires the websocket feed. Call only with a running feed.
func (h *SystemHandlers) SetLiveFeed(feed *finnhub.WebSocket) {
	h.liveFeed = feed
}

// SetBackupRunner wires the backup service. Call only when backups are
// configured.
func (h *SystemHandlers) SetBackupRunner(backups BackupRunner) {
	h.backups = backups
}

// HealthResponse is the public health check body
type HealthResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Databases     map[string]string `json:"databases"`
}

// HandleHealth reports database reachability and process uptime. Public.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startup).Seconds()),
		Databases:     make(map[string]string, 3),
	}

	for _, db := range []*database.DB{h.coreDB, h.marketDB, h.cacheDB} {
		if err := db.HealthCheck(ctx); err != nil {
			resp.Status = "degraded"
			resp.Databases[db.Name()] = err.Error()
			continue
		}
		resp.Databases[db.Name()] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	api.WriteJSON(w, status, resp)
}

// DatabaseStatus describes one database in the status response
type DatabaseStatus struct {
	Healthy      bool  `json:"healthy"`
	SizeBytes    int64 `json:"size_bytes"`
	WALSizeBytes int64 `json:"wal_size_bytes"`
	PageCount    int64 `json:"page_count"`
}

// SystemStatusResponse is the admin status body
type SystemStatusResponse struct {
	Status            string                    `json:"status"`
	UptimeSeconds     int64                     `json:"uptime_seconds"`
	GoVersion         string                    `json:"go_version"`
	Goroutines        int                       `json:"goroutines"`
	CPUPercent        float64                   `json:"cpu_percent"`
	RAMPercent        float64                   `json:"ram_percent"`
	Databases         map[string]DatabaseStatus `json:"databases"`
	ImportRunning     bool                      `json:"import_running"`
	LiveFeedConnected bool                      `json:"live_feed_connected"`
	StreamClients     int                       `json:"stream_clients"`
	Jobs              []scheduler.JobInfo       `json:"jobs"`
}

// HandleStatus returns the full system picture for the admin dashboard
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cpuPercent, ramPercent := h.resourceUsage()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startup).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Databases:     make(map[string]DatabaseStatus, 3),
	}

	for _, db := range []*database.DB{h.coreDB, h.marketDB, h.cacheDB} {
		status := DatabaseStatus{Healthy: db.HealthCheck(ctx) == nil}
		if !status.Healthy {
			resp.Status = "degraded"
		}
		if stats, err := db.GetStats(); err == nil {
			status.SizeBytes = stats.SizeBytes
			status.WALSizeBytes = stats.WALSizeBytes
			status.PageCount = stats.PageCount
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
		}
		resp.Databases[db.Name()] = status
	}

	if h.importer != nil {
		resp.ImportRunning = h.importer.IsRunning()
	}
	if h.liveFeed != nil {
		resp.LiveFeedConnected = h.liveFeed.IsConnected()
	}
	if h.priceStream != nil {
		resp.StreamClients = h.priceStream.ConnectionCount()
	}
	if h.scheduler != nil {
		resp.Jobs = h.scheduler.Jobs()
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

// HandleBackup starts a backup immediately. The archive builds in the
// background; completion lands on the event bus.
func (h *SystemHandlers) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		api.WriteJSON(w, http.StatusServiceUnavailable,
			api.ErrorResponse{Error: "backups are not configured"})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := h.backups.CreateAndUpload(ctx); err != nil {
			h.log.Error().Err(err).Msg("Manual backup failed")
		}
	}()

	api.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// resourceUsage samples CPU and memory utilization
func (h *SystemHandlers) resourceUsage() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}

	return cpuAvg, memStat.UsedPercent
}
