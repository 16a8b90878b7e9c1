package metrics

import (
	"sync"
	"time"

	"ChipSentinel/internal/model"
)

// HealthStatus tracks what the /healthz endpoint reports.
type HealthStatus struct {
	mu sync.RWMutex

	provider     string
	cacheBackend string
	startedAt    time.Time

	lastScanID      string
	lastScanAt      time.Time
	lastScanHits    int
	lastScanSkipped int
	lastScanned     int
}

// HealthSnapshot is the JSON view of HealthStatus.
type HealthSnapshot struct {
	Status          string `json:"status"`
	Uptime          string `json:"uptime"`
	Provider        string `json:"provider"`
	CacheBackend    string `json:"cache_backend"`
	LastScanID      string `json:"last_scan_id,omitempty"`
	LastScanAt      string `json:"last_scan_at,omitempty"`
	LastScanned     int    `json:"last_scanned"`
	LastScanHits    int    `json:"last_scan_hits"`
	LastScanSkipped int    `json:"last_scan_skipped"`
}

// NewHealthStatus returns a status for the given provider and cache backend.
func NewHealthStatus(provider, cacheBackend string) *HealthStatus {
	return &HealthStatus{
		provider:     provider,
		cacheBackend: cacheBackend,
		startedAt:    time.Now(),
	}
}

// RecordScan stores the summary of the latest scan.
func (h *HealthStatus) RecordScan(r *model.ScanReport) {
	if h == nil || r == nil {
		return
	}
	h.mu.Lock()
	h.lastScanID = r.ID.String()
	h.lastScanAt = r.FinishedAt
	h.lastScanned = r.Scanned
	h.lastScanHits = len(r.Hits)
	h.lastScanSkipped = len(r.Skipped)
	h.mu.Unlock()
}

// Snapshot returns the current view.
// Status is "degraded" when the latest scan skipped every symbol.
func (h *HealthStatus) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if h.lastScanned > 0 && h.lastScanSkipped == h.lastScanned {
		status = "degraded"
	}
	snap := HealthSnapshot{
		Status:          status,
		Uptime:          time.Since(h.startedAt).Round(time.Second).String(),
		Provider:        h.provider,
		CacheBackend:    h.cacheBackend,
		LastScanID:      h.lastScanID,
		LastScanned:     h.lastScanned,
		LastScanHits:    h.lastScanHits,
		LastScanSkipped: h.lastScanSkipped,
	}
	if !h.lastScanAt.IsZero() {
		snap.LastScanAt = h.lastScanAt.Format(time.RFC3339)
	}
	return snap
}
