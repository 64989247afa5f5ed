package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
	"github.com/semi-technologies/spmfgen/pkg/stats"
)

const progressInterval = 10000

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random SPMF sequence dataset",
	Long: `Generate sequences of itemsets with normally distributed sentence and itemset sizes,
write them to an SPMF file named after the parameters and report the actual statistics`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := globalConfig
		cfg.Mode = "generate"

		if err := cfg.Validate(); err != nil {
			fatal(err)
		}

		if err := runGenerate(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
			fatal(err)
		}
	},
}

func initGenerate() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.PersistentFlags().IntVarP(&globalConfig.NumSequences,
		"num-sequences", "n", 50000, "Number of sequences")
	generateCmd.PersistentFlags().IntVarP(&globalConfig.UniverseSize,
		"item-universe-size", "u", 200, "Number of unique items")
	generateCmd.PersistentFlags().Float64Var(&globalConfig.MeanSentenceSize,
		"mean-sentence-size", 10.5, "Mean number of itemsets per sequence")
	generateCmd.PersistentFlags().Float64Var(&globalConfig.StdSentenceSize,
		"std-sentence-size", 1, "Std dev of sentence size")
	generateCmd.PersistentFlags().Float64Var(&globalConfig.MeanItemsetSize,
		"mean-itemset-size", 3.5, "Mean number of items per itemset")
	generateCmd.PersistentFlags().Float64Var(&globalConfig.StdItemsetSize,
		"std-itemset-size", 1, "Std dev of itemset size")
	generateCmd.PersistentFlags().Int64VarP(&globalConfig.Seed,
		"seed", "s", 42, "Random seed")
	generateCmd.PersistentFlags().BoolVar(&globalConfig.Unseeded,
		"unseeded", false, "Seed from the clock instead of --seed (output is not reproducible)")
	generateCmd.PersistentFlags().StringVarP(&globalConfig.OutputDir,
		"output-dir", "o", ".", "Directory the dataset file is written to")
	generateCmd.PersistentFlags().IntVar(&globalConfig.Samples,
		"samples", 5, "Number of generated sequences to print")
	generateCmd.PersistentFlags().StringVarP(&globalConfig.OutputFormat,
		"format", "f", "text", "Output format of the report, one of [text, json]")
	generateCmd.PersistentFlags().StringVar(&globalConfig.ResultsDir,
		"results-dir", "", "Directory for a <run id>.json results file. If none provided, no results file is written")
	generateCmd.PersistentFlags().StringVar(&globalConfig.MetricsFile,
		"metrics-file", "", "Write the statistics in the Prometheus text format to this file")
	generateCmd.PersistentFlags().StringVarP(&globalConfig.Labels,
		"labels", "l", "", "Labels of format key1=value1,key2=value2,...")
	generateCmd.PersistentFlags().StringVar(&globalConfig.PrometheusConfig.PushURL,
		"pushgateway", "", "Prometheus pushgateway URL to push the statistics to")
	generateCmd.PersistentFlags().StringVar(&globalConfig.PrometheusConfig.JobName,
		"job", "spmfgen", "Job name used when pushing to the pushgateway")
	generateCmd.PersistentFlags().StringVar(&globalConfig.InfluxDBConfig.URL,
		"influxdb-url", "", "InfluxDB URL to write the statistics to")
	generateCmd.PersistentFlags().StringVar(&globalConfig.InfluxDBConfig.Token,
		"influxdb-token", "", "InfluxDB API token")
	generateCmd.PersistentFlags().StringVar(&globalConfig.InfluxDBConfig.Org,
		"influxdb-org", "", "InfluxDB organization")
	generateCmd.PersistentFlags().StringVar(&globalConfig.InfluxDBConfig.Bucket,
		"influxdb-bucket", "", "InfluxDB bucket")
}

func runGenerate(ctx context.Context, cfg Config, out io.Writer) error {
	params := cfg.Params()

	seed := cfg.Seed
	if cfg.Unseeded {
		seed = time.Now().UnixNano()
	}

	log.WithFields(log.Fields{"sequences": params.NumSequences, "universe": params.UniverseSize,
		"sentence": fmt.Sprintf("%.2f±%.2f", params.MeanSentenceSize, params.StdSentenceSize),
		"itemset":  fmt.Sprintf("%.2f±%.2f", params.MeanItemsetSize, params.StdItemsetSize),
		"seed":     seed}).Info("Generating dataset")

	generated := 0
	progress := spmf.ObserverFunc(func(spmf.Sequence) {
		generated++
		if generated%progressInterval == 0 {
			log.Debugf("Generated %d/%d sequences", generated, params.NumSequences)
		}
	})

	collector := stats.NewCollector()
	start := time.Now()
	ds, err := spmf.NewGenerator(params, spmf.NewSource(seed)).Dataset(params.NumSequences, collector, progress)
	if err != nil {
		return err
	}
	took := time.Since(start)

	path := filepath.Join(cfg.OutputDir, params.Filename())
	if err := writeDataset(path, ds); err != nil {
		return err
	}
	log.WithFields(log.Fields{"file": path, "took": took}).Info("Dataset written")

	report := collector.Report()
	if err := writeReport(out, cfg.OutputFormat, ds.Lines(cfg.Samples), report); err != nil {
		return err
	}

	result := newResult(params, seed, filepath.Base(path), report, took)
	return publishResult(ctx, &cfg, result)
}

func writeDataset(path string, ds spmf.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create output directory for %q", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create dataset file %q", path)
	}

	if _, err := ds.WriteTo(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write dataset file %q", path)
	}

	return errors.Wrapf(f.Close(), "close dataset file %q", path)
}

// writeReport prints the sample sequences followed by the statistics. The
// json format prints the statistics only.
func writeReport(w io.Writer, format string, samples []string, r stats.Report) error {
	if format == "json" {
		_, err := r.WriteJSONTo(w)
		return err
	}

	if _, err := fmt.Fprintln(w, "\nSample sequences:"); err != nil {
		return err
	}
	for _, line := range samples {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := r.WriteTextTo(w)
	return err
}
