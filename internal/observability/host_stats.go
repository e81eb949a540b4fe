package observability

import (
	"os"
	"runtime"
	"time"

	"github.com/annel0/mmo-game/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats periodically samples process CPU/memory and exposes them as
// Prometheus gauges alongside the Network Core's sim_* tick metrics.
type HostStats struct {
	cpuPercent prometheus.Gauge
	memAllocMB prometheus.Gauge
	goroutines prometheus.Gauge

	proc *process.Process
	stop chan struct{}
}

// StartHostStats registers the host gauges and begins sampling every
// interval; call the returned stop func on shutdown.
func StartHostStats(interval time.Duration) func() {
	hs := &HostStats{
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "host", Name: "cpu_percent",
			Help: "Доля CPU, используемая процессом сервера.",
		}),
		memAllocMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "host", Name: "mem_alloc_mb",
			Help: "Память, выделенная в куче Go (runtime.MemStats.Alloc).",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "host", Name: "goroutines",
			Help: "Текущее число горутин.",
		}),
		stop: make(chan struct{}),
	}
	prometheus.MustRegister(hs.cpuPercent, hs.memAllocMB, hs.goroutines)

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		hs.proc = proc
	} else {
		logging.LogWarn("observability: не удалось открыть self-процесс для метрик CPU: %v", err)
	}

	go hs.sampleLoop(interval)
	return func() { close(hs.stop) }
}

func (hs *HostStats) sampleLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-hs.stop:
			return
		case <-ticker.C:
			hs.sample()
		}
	}
}

func (hs *HostStats) sample() {
	if hs.proc != nil {
		if pct, err := hs.proc.CPUPercent(); err == nil {
			hs.cpuPercent.Set(pct)
		} else if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
			hs.cpuPercent.Set(pcts[0])
		}
	}
	hs.goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	hs.memAllocMB.Set(float64(m.Alloc) / 1024 / 1024)
}
