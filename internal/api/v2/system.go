// internal/api/v2/system.go
package api

import (
	"net/http"
	"os"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerMB = 1024 * 1024

// ResourceInfo reports memory held by the process and its dataset caches
type ResourceInfo struct {
	MemoryTotal    uint64  `json:"memory_total"`
	MemoryUsed     uint64  `json:"memory_used"`
	MemoryUsage    float64 `json:"memory_usage_percent"`
	ProcessMem     float64 `json:"process_memory_mb"`
	ProcessCPU     float64 `json:"process_cpu_percent"`
	HeapAlloc      float64 `json:"heap_alloc_mb"`
	Goroutines     int     `json:"goroutines"`
	NumCPU         int     `json:"num_cpu"`
	GoVersion      string  `json:"go_version"`
	ActiveSessions int     `json:"active_sessions"`
}

func (c *Controller) initSystemRoutes() {
	c.Group.GET("/system/resources", c.GetResourceInfo)
}

// GetResourceInfo handles GET /api/v2/system/resources
func (c *Controller) GetResourceInfo(ctx echo.Context) error {
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get memory information", http.StatusInternalServerError)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	info := ResourceInfo{
		MemoryTotal:    memInfo.Total,
		MemoryUsed:     memInfo.Used,
		MemoryUsage:    memInfo.UsedPercent,
		HeapAlloc:      float64(ms.HeapAlloc) / bytesPerMB,
		Goroutines:     runtime.NumGoroutine(),
		NumCPU:         runtime.NumCPU(),
		GoVersion:      runtime.Version(),
		ActiveSessions: c.Sessions.Count(),
	}

	// process figures are best effort, some platforms restrict them
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
			info.ProcessMem = float64(procMem.RSS) / bytesPerMB
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			info.ProcessCPU = cpu
		}
	}

	return ctx.JSON(http.StatusOK, info)
}
