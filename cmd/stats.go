package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
	"github.com/semi-technologies/spmfgen/pkg/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report statistics of an existing SPMF file",
	Long:  `Parse an SPMF sequence file and report the same statistics the generate command prints`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := globalConfig
		cfg.Mode = "stats"

		if err := cfg.Validate(); err != nil {
			fatal(err)
		}

		if err := runStats(cfg, cmd.OutOrStdout()); err != nil {
			fatal(err)
		}
	},
}

func initStats() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.PersistentFlags().StringVarP(&globalConfig.InputFile,
		"input", "i", "", "Point to the SPMF file, (.txt)")
	statsCmd.PersistentFlags().IntVar(&globalConfig.Samples,
		"samples", 5, "Number of sequences to print")
	statsCmd.PersistentFlags().StringVarP(&globalConfig.OutputFormat,
		"format", "f", "text", "Output format, one of [text, json]")
}

func runStats(cfg Config, out io.Writer) error {
	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return errors.Wrapf(err, "open %q", cfg.InputFile)
	}
	defer f.Close()

	collector := stats.NewCollector()
	var samples []string

	scanner := spmf.NewScanner(f)
	for scanner.Scan() {
		seq := scanner.Sequence()
		collector.Observe(seq)
		if len(samples) < cfg.Samples {
			samples = append(samples, seq.String())
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "parse %q", cfg.InputFile)
	}

	report := collector.Report()
	log.WithFields(log.Fields{"file": cfg.InputFile, "sequences": report.Sequences,
		"itemsets": report.Itemsets}).Info("Parsed dataset")

	return writeReport(out, cfg.OutputFormat, samples, report)
}
