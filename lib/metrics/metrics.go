/*package metrics counts what happened while reading a snapshot and writes
those counts out in the Prometheus text format.*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phil-mansfield/gadgetreader/lib/snapio"
)

const (
	namespace = "gadget_reader"
	subsystem = "snapshot"
)

// Metrics holds one registry's worth of counters. Use New to create one.
type Metrics struct {
	Registry *prometheus.Registry

	filesRead prometheus.Counter
	filesFailed *prometheus.CounterVec
	particlesRead prometheus.Counter
	particlesDeclared prometheus.Gauge
	readDuration prometheus.Counter
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		filesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name: "files_read_total",
			Help: "The number of snapshot files which were read successfully.",
		}),
		filesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name: "files_failed_total",
			Help: "The number of snapshot files which couldn't be read. " +
				"Broken down by the kind of error.",
		}, []string{ "kind" }),
		particlesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name: "particles_read_total",
			Help: "The number of dark matter positions which were read.",
		}),
		particlesDeclared: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name: "particles_declared",
			Help: "The total number of dark matter particles declared by " +
				"the most recently read snapshot.",
		}),
		readDuration: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name: "read_duration_seconds_total",
			Help: "The total time spent reading snapshots.",
		}),
	}

	m.Registry.MustRegister(m.filesRead, m.filesFailed, m.particlesRead,
		m.particlesDeclared, m.readDuration)
	return m
}

// ObserveSnapshot records the outcome of reading snap, which started at
// start.
func (m *Metrics) ObserveSnapshot(snap *snapio.Snapshot, start time.Time) {
	m.observeErrors(len(snap.Files), func(i int) error {
		return snap.Files[i].Err
	})
	m.particlesRead.Add(float64(snap.NRead))
	m.particlesDeclared.Set(float64(snap.Header.NPartTotal))
	m.readDuration.Add(time.Since(start).Seconds())
}

// ObserveCounts records the outcome of reading the headers in counts.
func (m *Metrics) ObserveCounts(counts []snapio.CountSummary) {
	m.observeErrors(len(counts), func(i int) error { return counts[i].Err })
	for i := range counts {
		if counts[i].Err == nil {
			m.particlesDeclared.Set(float64(counts[i].NPartTotal))
			break
		}
	}
}

func (m *Metrics) observeErrors(n int, err func(i int) error) {
	for i := 0; i < n; i++ {
		if e := err(i); e != nil {
			m.filesFailed.WithLabelValues(snapio.Kind(e)).Inc()
		} else {
			m.filesRead.Inc()
		}
	}
}

// Export writes every metric to fileName in the Prometheus text format.
func (m *Metrics) Export(fileName string) error {
	return prometheus.WriteToTextfile(fileName, m.Registry)
}
