package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"dkn/internal/model"
)

// Metrics counts catalog events. A nil *Metrics is valid and records nothing.
type Metrics struct {
	uploads   prometheus.Counter
	downloads prometheus.Counter
	deletes   prometheus.Counter
	reviews   *prometheus.CounterVec
}

// NewMetrics creates the catalog counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documents_uploaded_total",
			Help: "Total number of documents uploaded.",
		}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "document_downloads_total",
			Help: "Total number of successful document downloads.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documents_deleted_total",
			Help: "Total number of documents deleted by their uploader.",
		}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_reviews_total",
			Help: "Total number of review decisions by outcome.",
		}, []string{"decision"}),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.downloads, m.deletes, m.reviews} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) uploaded() {
	if m != nil {
		m.uploads.Inc()
	}
}

func (m *Metrics) downloaded() {
	if m != nil {
		m.downloads.Inc()
	}
}

func (m *Metrics) deleted() {
	if m != nil {
		m.deletes.Inc()
	}
}

func (m *Metrics) reviewed(decision model.DocumentStatus) {
	if m != nil {
		m.reviews.WithLabelValues(string(decision)).Inc()
	}
}
