package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
	"github.com/semi-technologies/spmfgen/pkg/stats"
)

// ResultsJSONDataset is one entry of a <run id>.json results file. The
// exporter command reads the same format back.
type ResultsJSONDataset struct {
	RunID            string  `json:"run_id"`
	Timestamp        string  `json:"timestamp"`
	Dataset          string  `json:"dataset_file"`
	NumSequences     int     `json:"num_sequences"`
	UniverseSize     int     `json:"item_universe_size"`
	MeanSentenceSize float64 `json:"mean_sentence_size"`
	StdSentenceSize  float64 `json:"std_sentence_size"`
	MeanItemsetSize  float64 `json:"mean_itemset_size"`
	StdItemsetSize   float64 `json:"std_itemset_size"`
	Seed             *int64  `json:"seed,omitempty"`
	Unseeded         bool    `json:"unseeded,omitempty"`

	ActualMeanSentenceSize float64 `json:"actual_mean_sentence_size"`
	ActualStdSentenceSize  float64 `json:"actual_std_sentence_size"`
	ActualMeanItemsetSize  float64 `json:"actual_mean_itemset_size"`
	ActualStdItemsetSize   float64 `json:"actual_std_itemset_size"`
	UniqueItems            int     `json:"unique_items"`
	Itemsets               int     `json:"itemsets"`
	GenerationTime         float64 `json:"generation_time"`
}

// newResult records the seed the run actually used, so clock-seeded runs can
// be replayed with --seed.
func newResult(p spmf.Params, seed int64, dataset string, r stats.Report, took time.Duration) *ResultsJSONDataset {
	return &ResultsJSONDataset{
		RunID:                  uuid.New().String(),
		Timestamp:              time.Now().UTC().Format(time.RFC3339),
		Dataset:                dataset,
		NumSequences:           p.NumSequences,
		UniverseSize:           p.UniverseSize,
		MeanSentenceSize:       p.MeanSentenceSize,
		StdSentenceSize:        p.StdSentenceSize,
		MeanItemsetSize:        p.MeanItemsetSize,
		StdItemsetSize:         p.StdItemsetSize,
		Seed:                   &seed,
		Unseeded:               p.Seed == nil,
		ActualMeanSentenceSize: r.MeanSentenceSize,
		ActualStdSentenceSize:  r.StdSentenceSize,
		ActualMeanItemsetSize:  r.MeanItemsetSize,
		ActualStdItemsetSize:   r.StdItemsetSize,
		UniqueItems:            r.UniqueItems,
		Itemsets:               r.Itemsets,
		GenerationTime:         took.Seconds(),
	}
}

// seedLabel is the seed as used in metric labels, "none" for results files
// written without one.
func (r *ResultsJSONDataset) seedLabel() string {
	if r.Seed == nil {
		return "none"
	}
	return strconv.FormatInt(*r.Seed, 10)
}

// publishResult hands the result to every sink enabled in the config.
func publishResult(ctx context.Context, cfg *Config, result *ResultsJSONDataset) error {
	if cfg.ResultsDir != "" {
		path, err := writeResults(cfg.ResultsDir, result, cfg.LabelMap)
		if err != nil {
			return err
		}
		infof("results succesfully written to %q", path)
	}

	if cfg.MetricsFile != "" {
		registry, err := newDatasetRegistry(cfg, result)
		if err != nil {
			return err
		}
		if err := WriteMetricsFile(cfg.MetricsFile, registry); err != nil {
			return err
		}
		infof("metrics succesfully written to %q", cfg.MetricsFile)
	}

	if err := PushMetricsToPrometheus(ctx, cfg, result); err != nil {
		return err
	}

	return PushMetricsToInfluxDB(ctx, cfg, result)
}

func writeResults(dir string, result *ResultsJSONDataset, labels map[string]string) (string, error) {
	jsonData, err := json.Marshal(result)
	if err != nil {
		return "", errors.Wrap(err, "convert result to json")
	}

	var resultMap map[string]interface{}
	if err := json.Unmarshal(jsonData, &resultMap); err != nil {
		return "", errors.Wrap(err, "convert json to map")
	}

	// result fields win over labels of the same name
	resultMap = lo.Assign(lo.MapValues(labels, func(v string, _ string) interface{} { return v }), resultMap)

	data, err := json.MarshalIndent([]map[string]interface{}{resultMap}, "", "    ")
	if err != nil {
		return "", errors.Wrap(err, "marshal results")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create results directory %q", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.json", result.RunID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write results file %q", path)
	}

	log.WithFields(log.Fields{"file": path, "run_id": result.RunID}).Debug("Results written")
	return path, nil
}

// datasetLabels are the tags attached to every published statistic: the
// configured labels plus the dataset, run and seed.
func datasetLabels(cfg *Config, result *ResultsJSONDataset) map[string]string {
	return lo.Assign(cfg.LabelMap, map[string]string{
		"dataset": result.Dataset,
		"run_id":  result.RunID,
		"seed":    result.seedLabel(),
	})
}
