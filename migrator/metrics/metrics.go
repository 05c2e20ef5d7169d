//Package metrics counts migration outcomes of a run on its own prometheus registry. The
//registry is written once at the end of the run to a node exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "custodian_migrator"

type Recorder struct {
	registry    *prometheus.Registry
	descriptors *prometheus.CounterVec
	records     *prometheus.CounterVec
	fixtures    *prometheus.CounterVec
	duration    prometheus.Gauge
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		descriptors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "descriptors_total",
			Help:      "Migration descriptors processed, by outcome",
		}, []string{"outcome"}),
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records uploaded by records migrations, by result",
		}, []string{"result"}),
		fixtures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixtures_total",
			Help:      "Fixtures bulk uploaded, by result",
		}, []string{"result"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
	}
}

func (r *Recorder) Descriptor(outcome string) {
	r.descriptors.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Record(result string) {
	r.records.WithLabelValues(result).Inc()
}

func (r *Recorder) Fixture(result string) {
	r.fixtures.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveRun(duration time.Duration) {
	r.duration.Set(duration.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

//WriteTextfile atomically replaces path with the current values.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
