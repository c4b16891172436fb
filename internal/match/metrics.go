package match

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Metrics holds the Prometheus collectors of the matching engine. Each
// Metrics owns its registry so engines in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	matchRows     *prometheus.CounterVec
	accounts      *prometheus.CounterVec
	deletedRows   *prometheus.CounterVec
	batchDuration *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		matchRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_match_rows_total",
				Help: "Matched facility rows inserted, by flag (total counts every row once)",
			},
			[]string{"strategy", "flag"},
		),
		accounts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_match_accounts_total",
				Help: "Accounts processed, by outcome",
			},
			[]string{"strategy", "result"},
		),
		deletedRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compliance_match_deleted_rows_total",
				Help: "Prior match rows replaced by batch runs",
			},
			[]string{"strategy"},
		),
		batchDuration: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compliance_match_last_batch_duration_seconds",
				Help: "Wall time of the last committed batch",
			},
			[]string{"strategy"},
		),
	}
}

// Observe records a committed batch.
func (m *Metrics) Observe(s *BatchSummary) {
	m.matchRows.WithLabelValues(s.Strategy, "total").Add(float64(s.Totals.Total))
	for _, f := range model.Flags {
		m.matchRows.WithLabelValues(s.Strategy, string(f)).Add(float64(s.Totals.ByFlag(f)))
	}
	failed := len(s.Failed)
	m.accounts.WithLabelValues(s.Strategy, "ok").Add(float64(len(s.Accounts) - failed))
	m.accounts.WithLabelValues(s.Strategy, "failed").Add(float64(failed))
	m.deletedRows.WithLabelValues(s.Strategy).Add(float64(s.Deleted))
	m.batchDuration.WithLabelValues(s.Strategy).Set(s.Duration.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the current values in the node-exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return eris.Wrapf(prometheus.WriteToTextfile(path, m.registry), "match: write metrics %s", path)
}
