package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var exporterLabels = []string{"dataset", "run_id", "seed", "item_universe_size"}

// Exporter turns results files into gauges, one series per run.
type Exporter struct {
	metrics map[string]*prometheus.GaugeVec
}

func NewExporter(registerer prometheus.Registerer) *Exporter {
	e := &Exporter{
		metrics: make(map[string]*prometheus.GaugeVec),
	}

	factory := promauto.With(registerer)
	for _, g := range datasetGauges {
		e.metrics[g.name] = factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      g.name,
				Help:      g.help,
			},
			exporterLabels,
		)
	}

	return e
}

func (e *Exporter) processJSONFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read results file %s", path)
	}

	var results []ResultsJSONDataset
	if err := json.Unmarshal(content, &results); err != nil {
		return errors.Wrapf(err, "parse JSON from file %s", path)
	}

	for i := range results {
		r := &results[i]
		labels := prometheus.Labels{
			"dataset":            r.Dataset,
			"run_id":             r.RunID,
			"seed":               r.seedLabel(),
			"item_universe_size": fmt.Sprintf("%d", r.UniverseSize),
		}

		for _, g := range datasetGauges {
			if metric := e.metrics[g.name]; metric != nil {
				metric.With(labels).Set(g.value(r))
			}
		}
	}

	log.WithFields(log.Fields{"file": path, "runs": len(results)}).Info("Processed results file")
	return nil
}

// watchDirectory processes the results files already in dir and every file
// created or written afterwards, until ctx is done.
func watchDirectory(ctx context.Context, dir string, exporter *Exporter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "watch directory %s", dir)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		watcher.Close()
		return errors.Wrapf(err, "read directory %s", dir)
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) == ".json" {
			fullPath := filepath.Join(dir, file.Name())
			if err := exporter.processJSONFile(fullPath); err != nil {
				log.WithError(err).Warnf("Skipping existing file %s", fullPath)
			}
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if filepath.Ext(event.Name) == ".json" {
						if err := exporter.processJSONFile(event.Name); err != nil {
							log.WithError(err).Warnf("Error processing file %s", event.Name)
						}
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Error("Error watching directory")
			}
		}
	}()

	return nil
}

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Serve dataset statistics to Prometheus",
	Long:  `Watch a results directory written by generate --results-dir and export the statistics of every run via Prometheus.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := globalConfig
		cfg.Mode = "exporter"

		if err := cfg.Validate(); err != nil {
			fatal(err)
		}

		registry := prometheus.NewRegistry()
		exporter := NewExporter(registry)

		if err := watchDirectory(cmd.Context(), cfg.ExporterDir, exporter); err != nil {
			fatal(err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>
			<head><title>SPMF Dataset Exporter</title></head>
			<body>
				<h1>SPMF Dataset Exporter</h1>
				<p><a href="/metrics">Metrics</a></p>
			</body>
			</html>`))
		})

		serverAddr := fmt.Sprintf(":%d", cfg.ExporterPort)
		log.WithFields(log.Fields{"addr": serverAddr, "dir": cfg.ExporterDir}).Info("Starting metrics server")
		if err := http.ListenAndServe(serverAddr, mux); err != nil {
			fatal(err)
		}
	},
}

func initExporter() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.PersistentFlags().StringVarP(&globalConfig.ExporterDir,
		"dir", "d", "./results", "Results directory path to watch")
	exporterCmd.PersistentFlags().IntVarP(&globalConfig.ExporterPort,
		"port", "p", 2121, "Port to serve metrics on")
}
