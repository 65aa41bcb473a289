package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harvester"

var (
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Harvest invocations by mode and response status code.",
	}, []string{"mode", "status"})

	RecordsHarvested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_harvested_total",
		Help:      "Records fetched from the catalog and written to the bucket.",
	})

	RecordFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_failures_total",
		Help:      "Records that could not be harvested, by failed stage.",
	}, []string{"stage"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
