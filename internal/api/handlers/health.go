package handlers

import (
	"context"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/sector-rotation-go/internal/cache"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var startTime = time.Now()

// HealthChecker is implemented by every dependency the health endpoint checks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// CacheStatsProvider exposes the response cache counters.
type CacheStatsProvider interface {
	GetStats() cache.CacheStats
	HitRate() float64
}

type HealthHandler struct {
	critical map[string]HealthChecker
	optional map[string]HealthChecker
	cache    CacheStatsProvider
	version  string
	timeout  time.Duration
	memoryFn func(ctx context.Context) (*MemoryStats, error)
}

type CacheHealth struct {
	cache.CacheStats
	HitRatePct float64 `json:"hit_rate_percent"`
}

type MemoryStats struct {
	ProcessRSSBytes uint64  `json:"process_rss_bytes"`
	SystemUsedPct   float64 `json:"system_used_percent"`
	SystemTotal     uint64  `json:"system_total_bytes"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Memory    *MemoryStats      `json:"memory,omitempty"`
	Cache     *CacheHealth      `json:"cache,omitempty"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// NewHealthHandler creates a handler. A failing critical check makes the
// service unhealthy (503); a failing optional check only degrades it.
func NewHealthHandler(critical, optional map[string]HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		critical: critical,
		optional: optional,
		version:  version,
		timeout:  5 * time.Second,
		memoryFn: readMemoryStats,
	}
}

// WithCacheStats adds the cache counters to every health response.
func (h *HealthHandler) WithCacheStats(stats CacheStatsProvider) *HealthHandler {
	h.cache = stats
	return h
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	services := make(map[string]string, len(h.critical)+len(h.optional))
	status := "healthy"

	for _, name := range sortedKeys(h.critical) {
		if err := h.critical[name].HealthCheck(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			services[name] = "healthy"
		}
	}
	for _, name := range sortedKeys(h.optional) {
		if err := h.optional[name].HealthCheck(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			services[name] = "healthy"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
	if stats, err := h.memoryFn(ctx); err == nil {
		response.Memory = stats
	}
	if h.cache != nil {
		response.Cache = &CacheHealth{CacheStats: h.cache.GetStats(), HitRatePct: h.cache.HitRate()}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}

func readMemoryStats(ctx context.Context) (*MemoryStats, error) {
	stats := &MemoryStats{}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.SystemUsedPct = vm.UsedPercent
		stats.SystemTotal = vm.Total
	} else {
		return nil, err
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return stats, nil
	}
	if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
		stats.ProcessRSSBytes = info.RSS
	}
	return stats, nil
}

func sortedKeys(m map[string]HealthChecker) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
