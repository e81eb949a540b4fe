package network

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SimMetrics exposes the Network Core's Prometheus surface: tick
// duration, corrections issued, and encoded snapshot bytes sent, mirroring
// the shape of middleware.PrometheusMiddleware for the REST layer.
type SimMetrics struct {
	tickDuration     prometheus.Histogram
	ticksProcessed   prometheus.Counter
	corrections      *prometheus.CounterVec
	voxelDeltaBytes  prometheus.Counter
	snapshotsSent    prometheus.Counter
	activeClients    prometheus.Gauge
	droppedPackets   *prometheus.CounterVec
}

// NewSimMetrics creates and registers the Network Core's metric set in
// the default Prometheus registry.
func NewSimMetrics() *SimMetrics {
	m := &SimMetrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sim",
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного серверного тика (приём + шаг + снапшот).",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
		}),
		ticksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sim",
			Name:      "ticks_total",
			Help:      "Общее число обработанных тиков.",
		}),
		corrections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sim",
			Name:      "prediction_corrections_total",
			Help:      "Число выданных коррекций предсказания по типу.",
		}, []string{"kind"}), // "position" | "voxel"
		voxelDeltaBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sim",
			Name:      "voxel_delta_bytes_total",
			Help:      "Суммарный размер отправленных закодированных пакетов GAME_STATE_SNAPSHOT в байтах.",
		}),
		snapshotsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sim",
			Name:      "snapshots_sent_total",
			Help:      "Число отправленных GAME_STATE_SNAPSHOT пакетов.",
		}),
		activeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sim",
			Name:      "active_clients",
			Help:      "Текущее число подключённых клиентов.",
		}),
		droppedPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sim",
			Name:      "dropped_packets_total",
			Help:      "Число отброшенных входящих пакетов по причине.",
		}, []string{"reason"}), // "size_mismatch_or_unknown_type" | "unexpected_type"
	}

	registerOrReuse(&m.tickDuration, m.tickDuration)
	registerOrReuse(&m.ticksProcessed, m.ticksProcessed)
	registerOrReuse(&m.corrections, m.corrections)
	registerOrReuse(&m.voxelDeltaBytes, m.voxelDeltaBytes)
	registerOrReuse(&m.snapshotsSent, m.snapshotsSent)
	registerOrReuse(&m.activeClients, m.activeClients)
	registerOrReuse(&m.droppedPackets, m.droppedPackets)
	return m
}

// registerOrReuse registers c in the default registry, or — if a
// same-named collector is already registered (e.g. a second Server in
// the same process, as happens in tests) — swaps *dst for the existing
// one so every SimMetrics instance updates the same exported series.
func registerOrReuse[T prometheus.Collector](dst *T, c T) {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				*dst = existing
			}
		}
	}
}

func (m *SimMetrics) observeTick(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
	m.ticksProcessed.Inc()
}

func (m *SimMetrics) recordPositionCorrection() { m.corrections.WithLabelValues("position").Inc() }
func (m *SimMetrics) recordVoxelCorrection()     { m.corrections.WithLabelValues("voxel").Inc() }
func (m *SimMetrics) recordDrop(reason string)   { m.droppedPackets.WithLabelValues(reason).Inc() }
func (m *SimMetrics) recordSnapshot(bytes int) {
	m.snapshotsSent.Inc()
	m.voxelDeltaBytes.Add(float64(bytes))
}
func (m *SimMetrics) setActiveClients(n int) { m.activeClients.Set(float64(n)) }
