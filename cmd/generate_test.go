package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
)

func TestRunGenerate(t *testing.T) {
	dir := t.TempDir()

	c := generateConfig()
	c.OutputDir = filepath.Join(dir, "out")
	c.ResultsDir = filepath.Join(dir, "results")
	c.MetricsFile = filepath.Join(dir, "dataset.prom")
	c.Labels = "branch=main"
	require.NoError(t, c.Validate())

	var out bytes.Buffer
	require.NoError(t, runGenerate(context.Background(), c, &out))

	datasetPath := filepath.Join(c.OutputDir, "seq100_u50_ss4.5-1.00_is2.5-1.00_seed42.txt")
	content, err := os.ReadFile(datasetPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	require.Len(t, lines, c.NumSequences)

	t.Run("console report", func(t *testing.T) {
		report := out.String()
		require.True(t, strings.HasPrefix(report, "\nSample sequences:\n"+strings.Join(lines[:5], "\n")+"\n"))
		require.Contains(t, report, "Actual stats from generated dataset:")
		require.Contains(t, report, "Unique items used: ")
	})

	t.Run("same seed writes the same file", func(t *testing.T) {
		again := c
		again.OutputDir = filepath.Join(dir, "again")
		again.ResultsDir = ""
		again.MetricsFile = ""
		require.NoError(t, runGenerate(context.Background(), again, &bytes.Buffer{}))

		second, err := os.ReadFile(filepath.Join(again.OutputDir, filepath.Base(datasetPath)))
		require.NoError(t, err)
		require.Equal(t, content, second)
	})

	t.Run("stats command reproduces the report", func(t *testing.T) {
		sc := Config{Mode: "stats", InputFile: datasetPath, Samples: 5}
		require.NoError(t, sc.Validate())

		var statsOut bytes.Buffer
		require.NoError(t, runStats(sc, &statsOut))
		require.Equal(t, out.String(), statsOut.String())
	})

	t.Run("results file", func(t *testing.T) {
		files, err := filepath.Glob(filepath.Join(c.ResultsDir, "*.json"))
		require.NoError(t, err)
		require.Len(t, files, 1)

		data, err := os.ReadFile(files[0])
		require.NoError(t, err)

		var results []map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &results))
		require.Len(t, results, 1)
		require.Equal(t, filepath.Base(datasetPath), results[0]["dataset_file"])
		require.Equal(t, 42.0, results[0]["seed"])
		require.NotContains(t, results[0], "unseeded")
		require.Equal(t, 100.0, results[0]["num_sequences"])
		require.Equal(t, "main", results[0]["branch"])
		require.Equal(t, strings.TrimSuffix(filepath.Base(files[0]), ".json"), results[0]["run_id"])
	})

	t.Run("metrics file", func(t *testing.T) {
		f, err := os.Open(c.MetricsFile)
		require.NoError(t, err)
		defer f.Close()

		parser := expfmt.TextParser{}
		families, err := parser.TextToMetricFamilies(f)
		require.NoError(t, err)

		sequences, ok := families["spmf_sequences"]
		require.True(t, ok)
		require.Equal(t, 100.0, sequences.Metric[0].GetGauge().GetValue())

		labels := map[string]string{}
		for _, l := range sequences.Metric[0].GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		require.Equal(t, filepath.Base(datasetPath), labels["dataset"])
		require.Equal(t, "42", labels["seed"])
		require.Equal(t, "main", labels["branch"])

		for _, g := range datasetGauges {
			require.Contains(t, families, "spmf_"+g.name)
		}
	})
}

func TestRunGenerateUnseeded(t *testing.T) {
	dir := t.TempDir()

	c := generateConfig()
	c.OutputDir = filepath.Join(dir, "out")
	c.ResultsDir = filepath.Join(dir, "results")
	c.Unseeded = true
	c.OutputFormat = "json"
	require.NoError(t, c.Validate())

	var out bytes.Buffer
	require.NoError(t, runGenerate(context.Background(), c, &out))

	content, err := os.ReadFile(filepath.Join(c.OutputDir, "seq100_u50_ss4.5-1.00_is2.5-1.00.txt"))
	require.NoError(t, err)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Equal(t, 100.0, report["sequences"])

	files, err := filepath.Glob(filepath.Join(c.ResultsDir, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var results []ResultsJSONDataset
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 1)
	require.True(t, results[0].Unseeded)
	require.NotNil(t, results[0].Seed, "the drawn seed is recorded")

	t.Run("recorded seed replays the dataset", func(t *testing.T) {
		replay := generateConfig()
		replay.OutputDir = filepath.Join(dir, "replay")
		replay.Seed = *results[0].Seed
		require.NoError(t, replay.Validate())
		require.NoError(t, runGenerate(context.Background(), replay, &bytes.Buffer{}))

		replayed, err := os.ReadFile(filepath.Join(replay.OutputDir, replay.Params().Filename()))
		require.NoError(t, err)
		require.Equal(t, content, replayed)
	})
}

func TestRunGenerateSamplingError(t *testing.T) {
	c := generateConfig()
	c.OutputDir = t.TempDir()
	c.UniverseSize = 2
	c.MeanItemsetSize = 10
	require.NoError(t, c.Validate())

	err := runGenerate(context.Background(), c, &bytes.Buffer{})

	var samplingErr *spmf.SamplingError
	require.ErrorAs(t, err, &samplingErr)

	entries, err := os.ReadDir(c.OutputDir)
	require.NoError(t, err)
	require.Empty(t, entries, "no dataset file may be written")
}

func TestRunStatsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 2 -1 -2\n3 -1\n"), 0o644))

	err := runStats(Config{Mode: "stats", InputFile: path, OutputFormat: "text"}, &bytes.Buffer{})

	var parseErr *spmf.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, 2, parseErr.Line)
}
