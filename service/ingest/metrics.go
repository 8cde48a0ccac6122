package ingest

import "github.com/prometheus/client_golang/prometheus"

// Upload outcomes used as the "result" label of lead_uploads_total
const (
	ResultAccepted        = "accepted"
	ResultInvalidFileType = "invalid_file_type"
	ResultInvalidFormat   = "invalid_format"
	ResultNoValidLeads    = "no_valid_leads"
	ResultIngestionFailed = "ingestion_failed"
)

type Metrics struct {
	uploads     *prometheus.CounterVec
	leadsStored prometheus.Counter
	rowsSkipped prometheus.Counter
}

// NewMetrics registers the ingestion counters with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "lead_uploads_total",
			Help:      "CSV lead uploads by result.",
		}, []string{"result"}),
		leadsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "leads_stored_total",
			Help:      "Leads persisted from CSV uploads.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lead_intake",
			Name:      "lead_rows_skipped_total",
			Help:      "CSV rows dropped because they had neither a name nor an email.",
		}),
	}
	reg.MustRegister(m.uploads, m.leadsStored, m.rowsSkipped)
	return m
}

func (m *Metrics) observe(result string, stored, skipped int) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
	m.leadsStored.Add(float64(stored))
	m.rowsSkipped.Add(float64(skipped))
}
