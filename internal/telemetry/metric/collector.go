package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/respkv/internal/storage"
)

// KeyspaceCollector reports key counts per non-empty database at scrape
// time.
type KeyspaceCollector struct {
	engine  storage.Engine
	keys    *prometheus.Desc
	expires *prometheus.Desc
}

// NewKeyspaceCollector creates a collector over engine.
func NewKeyspaceCollector(engine storage.Engine) *KeyspaceCollector {
	return &KeyspaceCollector{
		engine: engine,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db", "keys"),
			"Live keys per database",
			[]string{"db"}, nil,
		),
		expires: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db", "expiring_keys"),
			"Keys with a timeout per database",
			[]string{"db"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expires
}

// Collect implements prometheus.Collector.
func (c *KeyspaceCollector) Collect(ch chan<- prometheus.Metric) {
	for i := 0; i < c.engine.Databases(); i++ {
		ks, err := c.engine.Select(i)
		if err != nil {
			return
		}
		stats, err := ks.Stats()
		if err != nil || stats.Keys == 0 {
			continue
		}
		db := strconv.Itoa(i)
		ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(stats.Keys), db)
		ch <- prometheus.MustNewConstMetric(c.expires, prometheus.GaugeValue, float64(stats.Expires), db)
	}
}

// RegisterKeyspace registers a KeyspaceCollector for engine.
func (r *Registry) RegisterKeyspace(engine storage.Engine) error {
	return r.registry.Register(NewKeyspaceCollector(engine))
}
