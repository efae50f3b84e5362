// Package metrics records run outcomes in a private Prometheus registry and
// exports them as a node_exporter textfile. Each run is its own process, so
// counters and last-value gauges are carried over from the previous textfile
// with Restore; the duration histogram covers the current run only.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"xau-signal-bot/internal/types"
)

type Recorder struct {
	registry *prometheus.Registry

	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
	confidence  *prometheus.GaugeVec
	logRows     prometheus.Gauge
	candles     prometheus.Gauge
	lastSuccess prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xau_signal_runs_total",
				Help: "Pipeline runs by outcome",
			},
			[]string{"result", "kind"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xau_signal_run_duration_seconds",
				Help:    "Wall time of one pipeline run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		),
		confidence: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "xau_signal_confidence",
				Help: "Confidence of the last produced signal",
			},
			[]string{"symbol", "short_term_action", "long_term_action"},
		),
		logRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "xau_signal_log_rows",
			Help: "Rows in the signal log after the last append",
		}),
		candles: f.NewGauge(prometheus.GaugeOpts{
			Name: "xau_signal_window_candles",
			Help: "Candles sent to the model on the last run",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "xau_signal_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
}

// ObserveRun records the outcome of one run. res is ignored when err is set.
func (r *Recorder) ObserveRun(symbol string, res *types.RunResult, err error, took time.Duration) {
	r.runDuration.Observe(took.Seconds())
	if err != nil {
		r.runsTotal.WithLabelValues("error", types.ErrorKind(err)).Inc()
		return
	}
	r.runsTotal.WithLabelValues("ok", "").Inc()
	if res == nil {
		return
	}
	r.confidence.Reset()
	r.confidence.WithLabelValues(symbol, string(res.Signal.ShortTermAction), string(res.Signal.LongTermAction)).
		Set(float64(res.Signal.Confidence))
	r.logRows.Set(float64(res.LogRows))
	r.candles.Set(float64(res.Candles))
	r.lastSuccess.SetToCurrentTime()
}

// Restore seeds counters and last-value gauges from a textfile written by a
// previous run. A missing file or empty path is not an error.
func (r *Recorder) Restore(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, m := range families["xau_signal_runs_total"].GetMetric() {
		l := labels(m)
		r.runsTotal.WithLabelValues(l["result"], l["kind"]).Add(m.GetCounter().GetValue())
	}
	for _, m := range families["xau_signal_confidence"].GetMetric() {
		l := labels(m)
		r.confidence.WithLabelValues(l["symbol"], l["short_term_action"], l["long_term_action"]).
			Set(m.GetGauge().GetValue())
	}
	restoreGauge(families["xau_signal_log_rows"], r.logRows)
	restoreGauge(families["xau_signal_window_candles"], r.candles)
	restoreGauge(families["xau_signal_last_success_timestamp_seconds"], r.lastSuccess)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func restoreGauge(mf *dto.MetricFamily, g prometheus.Gauge) {
	if ms := mf.GetMetric(); len(ms) > 0 {
		g.Set(ms[0].GetGauge().GetValue())
	}
}

func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// WriteTextfile atomically writes the registry to path. An empty path is a
// no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
