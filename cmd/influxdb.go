package cmd

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// InfluxDBConfig holds configuration for InfluxDB metrics reporting
type InfluxDBConfig struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
}

const influxMeasurement = "spmf_dataset"

func newInfluxPoint(cfg *Config, result *ResultsJSONDataset, ts time.Time) *write.Point {
	p := influxdb2.NewPointWithMeasurement(influxMeasurement).SetTime(ts)
	for key, value := range datasetLabels(cfg, result) {
		p.AddTag(key, value)
	}

	for _, g := range datasetGauges {
		p.AddField(g.name, g.value(result))
	}

	return p.SortTags().SortFields()
}

// PushMetricsToInfluxDB writes the dataset statistics to an InfluxDB instance
func PushMetricsToInfluxDB(ctx context.Context, cfg *Config, result *ResultsJSONDataset) error {
	if !cfg.InfluxDBConfig.Enabled || cfg.InfluxDBConfig.URL == "" {
		return nil
	}

	client := influxdb2.NewClient(cfg.InfluxDBConfig.URL, cfg.InfluxDBConfig.Token)
	defer client.Close()

	writeAPI := client.WriteAPIBlocking(cfg.InfluxDBConfig.Org, cfg.InfluxDBConfig.Bucket)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := writeAPI.WritePoint(ctx, newInfluxPoint(cfg, result, time.Now())); err != nil {
		log.WithError(err).Error("Failed to push metrics to InfluxDB")
		return errors.Wrap(err, "write point to influxdb")
	}

	log.WithFields(log.Fields{
		"url":     cfg.InfluxDBConfig.URL,
		"bucket":  cfg.InfluxDBConfig.Bucket,
		"run_id":  result.RunID,
		"dataset": result.Dataset,
	}).Info("Successfully pushed metrics to InfluxDB")

	return nil
}
