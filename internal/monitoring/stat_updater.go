package monitoring

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/okenna/dreamloom-be/internal/services"
)

const (
	sampleInterval   = 15 * time.Second
	highCPUThreshold = 90.0
	alertCooldown    = 10 * time.Minute
)

// HostStats is a point-in-time snapshot of host load.
type HostStats struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	MemoryUsedMB  uint64    `json:"memoryUsedMb"`
	MemoryTotalMB uint64    `json:"memoryTotalMb"`
	SampledAt     time.Time `json:"sampledAt"`
}

// StatUpdater periodically samples host CPU and memory, keeping the latest
// snapshot for the stats endpoint and raising an event on sustained load.
type StatUpdater struct {
	eventSvc services.EventServiceProvider
	ticker   *time.Ticker
	done     chan bool

	mu        sync.RWMutex
	latest    HostStats
	lastAlert time.Time
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(eventSvc services.EventServiceProvider) *StatUpdater {
	return &StatUpdater{
		eventSvc: eventSvc,
		done:     make(chan bool),
	}
}

// Run starts the periodic sampling.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	su.ticker = time.NewTicker(sampleInterval)
	defer su.ticker.Stop()

	// Sample once immediately on start
	su.sample()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-su.ticker.C:
			su.sample()
		}
	}
}

// Stop halts the periodic sampling.
func (su *StatUpdater) Stop() {
	su.done <- true
}

// Latest returns the most recent snapshot. The zero value means no sample
// has completed yet.
func (su *StatUpdater) Latest() HostStats {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.latest
}

func (su *StatUpdater) sample() {
	stats := HostStats{SampledAt: time.Now()}

	if percents, err := cpu.Percent(0, false); err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Failed to sample CPU")
	} else if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Failed to sample memory")
	} else {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
		stats.MemoryTotalMB = vm.Total / 1024 / 1024
	}

	su.mu.Lock()
	su.latest = stats
	shouldAlert := stats.CPUPercent >= highCPUThreshold && time.Since(su.lastAlert) >= alertCooldown
	if shouldAlert {
		su.lastAlert = time.Now()
	}
	su.mu.Unlock()

	if shouldAlert {
		log.Warn().Float64("cpu_percent", stats.CPUPercent).Msg("StatUpdater: Sustained high CPU")
		su.eventSvc.CreateEvent("system.alert.cpu", "warn", "Host CPU usage is critically high.", nil)
	}
}
