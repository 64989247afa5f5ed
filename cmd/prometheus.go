package cmd

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
)

const metricsNamespace = "spmf"

// PrometheusConfig holds configuration for Prometheus metrics reporting
type PrometheusConfig struct {
	Enabled bool
	PushURL string
	JobName string
}

// datasetGauges lists every statistic published as a gauge, both by the
// generate command and by the exporter.
var datasetGauges = []struct {
	name  string
	help  string
	value func(r *ResultsJSONDataset) float64
}{
	{"sequences", "Number of generated sequences",
		func(r *ResultsJSONDataset) float64 { return float64(r.NumSequences) }},
	{"itemsets", "Number of generated itemsets",
		func(r *ResultsJSONDataset) float64 { return float64(r.Itemsets) }},
	{"item_universe_size", "Configured size of the item universe",
		func(r *ResultsJSONDataset) float64 { return float64(r.UniverseSize) }},
	{"mean_sentence_size", "Actual mean number of itemsets per sequence",
		func(r *ResultsJSONDataset) float64 { return r.ActualMeanSentenceSize }},
	{"std_sentence_size", "Actual std dev of the number of itemsets per sequence",
		func(r *ResultsJSONDataset) float64 { return r.ActualStdSentenceSize }},
	{"mean_itemset_size", "Actual mean number of items per itemset",
		func(r *ResultsJSONDataset) float64 { return r.ActualMeanItemsetSize }},
	{"std_itemset_size", "Actual std dev of the number of items per itemset",
		func(r *ResultsJSONDataset) float64 { return r.ActualStdItemsetSize }},
	{"unique_items", "Number of distinct items used in the dataset",
		func(r *ResultsJSONDataset) float64 { return float64(r.UniqueItems) }},
	{"generation_time_seconds", "Time spent generating the dataset",
		func(r *ResultsJSONDataset) float64 { return r.GenerationTime }},
}

// newDatasetRegistry creates a registry holding one gauge per statistic of
// the result, labelled with the dataset, the run and any configured labels.
func newDatasetRegistry(cfg *Config, result *ResultsJSONDataset) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels(datasetLabels(cfg, result))

	for _, g := range datasetGauges {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        g.name,
			Help:        g.help,
			ConstLabels: labels,
		})
		gauge.Set(g.value(result))
		if err := registry.Register(gauge); err != nil {
			return nil, errors.Wrapf(err, "register gauge %q", g.name)
		}
	}

	return registry, nil
}

// WriteMetricsFile writes the registry in the Prometheus text exposition
// format, e.g. for the node exporter textfile collector.
func WriteMetricsFile(path string, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create metrics file %q", path)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			f.Close()
			return errors.Wrapf(err, "write metrics file %q", path)
		}
	}

	return errors.Wrapf(f.Close(), "close metrics file %q", path)
}

// PushMetricsToPrometheus pushes the dataset statistics to a Prometheus pushgateway
func PushMetricsToPrometheus(ctx context.Context, cfg *Config, result *ResultsJSONDataset) error {
	if !cfg.PrometheusConfig.Enabled || cfg.PrometheusConfig.PushURL == "" {
		return nil
	}

	registry, err := newDatasetRegistry(cfg, result)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pusher := push.New(cfg.PrometheusConfig.PushURL, cfg.PrometheusConfig.JobName).
		Gatherer(registry).
		Client(newRetryingHTTPClient())

	if err := pusher.PushContext(ctx); err != nil {
		log.WithError(err).Error("Failed to push metrics to Prometheus")
		return errors.Wrap(err, "push metrics to pushgateway")
	}

	log.WithFields(log.Fields{
		"url":     cfg.PrometheusConfig.PushURL,
		"job":     cfg.PrometheusConfig.JobName,
		"run_id":  result.RunID,
		"dataset": result.Dataset,
	}).Info("Successfully pushed metrics to Prometheus")

	return nil
}

func newRetryingHTTPClient() *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = retryLogger{log.WithField("component", "http")}
	return client.StandardClient()
}

// retryLogger routes retryablehttp's leveled logging to logrus.
type retryLogger struct {
	entry *log.Entry
}

func (l retryLogger) fields(keysAndValues []interface{}) *log.Entry {
	fields := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.entry.WithFields(fields)
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}
