// Package metrics exports scan results as Prometheus metrics in the node
// exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/steveyegge/agentscan/internal/types"
)

// ScanMetrics holds the gauges for one scan on a private registry, so
// repeated scans in one process (watch mode) do not collide.
type ScanMetrics struct {
	registry *prometheus.Registry

	agents          *prometheus.GaugeVec
	risks           *prometheus.GaugeVec
	files           *prometheus.GaugeVec
	durationSeconds prometheus.Gauge
	lastScan        prometheus.Gauge
	truncated       prometheus.Gauge
	scans           prometheus.Counter
}

// New registers the scan metrics on a fresh registry.
func New() *ScanMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &ScanMetrics{
		registry: reg,
		agents: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentscan_agents",
				Help: "Number of detected agents by framework",
			},
			[]string{"framework"},
		),
		risks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentscan_risk_flags",
				Help: "Number of risk flags by severity",
			},
			[]string{"severity"},
		),
		files: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentscan_files",
				Help: "Number of files by scan state",
			},
			[]string{"state"}, // discovered, scanned, skipped
		),
		durationSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentscan_scan_duration_seconds",
			Help: "Wall time of the last scan",
		}),
		lastScan: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentscan_last_scan_timestamp_seconds",
			Help: "Unix time the last scan started",
		}),
		truncated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentscan_scan_truncated",
			Help: "1 when discovery stopped at the file cap",
		}),
		scans: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentscan_scans_total",
			Help: "Total number of scans recorded",
		}),
	}
}

// Record replaces the gauges with the values of result.
func (m *ScanMetrics) Record(result *types.ScanResult) {
	m.agents.Reset()
	for framework, n := range result.FrameworkBreakdown {
		m.agents.WithLabelValues(framework).Set(float64(n))
	}

	rs := result.RiskSummary
	m.risks.WithLabelValues(string(types.SeverityCritical)).Set(float64(rs.Critical))
	m.risks.WithLabelValues(string(types.SeverityHigh)).Set(float64(rs.High))
	m.risks.WithLabelValues(string(types.SeverityMedium)).Set(float64(rs.Medium))
	m.risks.WithLabelValues(string(types.SeverityLow)).Set(float64(rs.Low))

	s := result.Summary
	m.files.WithLabelValues("discovered").Set(float64(s.FilesDiscovered))
	m.files.WithLabelValues("scanned").Set(float64(s.FilesScanned))
	m.files.WithLabelValues("skipped").Set(float64(s.FilesSkipped))

	m.durationSeconds.Set(s.Duration.Seconds())
	m.lastScan.Set(float64(s.Timestamp.Unix()))
	if result.Metadata.Truncated {
		m.truncated.Set(1)
	} else {
		m.truncated.Set(0)
	}
	m.scans.Inc()
}

// Gatherer exposes the underlying registry.
func (m *ScanMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics to path atomically.
func (m *ScanMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
