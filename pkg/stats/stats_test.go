package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
)

func collectorFor(ds spmf.Dataset) *Collector {
	c := NewCollector()
	for _, seq := range ds {
		c.Observe(seq)
	}
	return c
}

func collect(ds spmf.Dataset) Report {
	return collectorFor(ds).Report()
}

func sortedKeys(m map[int]struct{}) []int {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func TestCollectorReport(t *testing.T) {
	ds := spmf.Dataset{
		{{1, 2}, {2}},
		{{3, 4, 9}},
	}

	r := collect(ds)

	require.Equal(t, 2, r.Sequences)
	require.Equal(t, 3, r.Itemsets)
	require.InDelta(t, 1.5, r.MeanSentenceSize, 1e-12)
	require.InDelta(t, math.Sqrt(0.5), r.StdSentenceSize, 1e-12)
	require.InDelta(t, 2.0, r.MeanItemsetSize, 1e-12)
	require.InDelta(t, 1.0, r.StdItemsetSize, 1e-12)
	require.Equal(t, 5, r.UniqueItems)
	require.Equal(t, []int{1, 2, 3, 4, 9}, sortedKeys(collectorFor(ds).items))
}

func TestCollectorDegenerate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.Equal(t, Report{}, NewCollector().Report())
	})

	t.Run("single sequence with a single itemset", func(t *testing.T) {
		r := collect(spmf.Dataset{{{4, 5, 6}}})
		require.Equal(t, 1.0, r.MeanSentenceSize)
		require.Equal(t, 0.0, r.StdSentenceSize)
		require.Equal(t, 3.0, r.MeanItemsetSize)
		require.Equal(t, 0.0, r.StdItemsetSize)
		require.Equal(t, 3, r.UniqueItems)
	})
}

// truncatedMean is the expectation of max(1, trunc(X)) for X ~ N(mu, sigma).
func truncatedMean(mu, sigma float64) float64 {
	n := distuv.Normal{Mu: mu, Sigma: sigma}
	mean := n.CDF(2)
	for k := 2; float64(k) < mu+12*sigma; k++ {
		mean += float64(k) * (n.CDF(float64(k+1)) - n.CDF(float64(k)))
	}
	return mean
}

func TestStatisticsConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("generates 50000 sequences")
	}

	p := spmf.Params{
		NumSequences:     50000,
		UniverseSize:     200,
		MeanSentenceSize: 10.5,
		StdSentenceSize:  1,
		MeanItemsetSize:  3.5,
		StdItemsetSize:   1,
	}.WithSeed(42)

	c := NewCollector()
	_, err := spmf.NewGenerator(p, spmf.NewSource(*p.Seed)).Dataset(p.NumSequences, c)
	require.NoError(t, err)
	r := c.Report()

	require.Equal(t, p.NumSequences, r.Sequences)
	require.InDelta(t, truncatedMean(10.5, 1), r.MeanSentenceSize, 0.05)
	require.InDelta(t, truncatedMean(3.5, 1), r.MeanItemsetSize, 0.05)

	// sizes are truncated toward zero, which shifts the means down by about 0.5
	require.InDelta(t, p.MeanSentenceSize-0.5, r.MeanSentenceSize, 0.1)
	require.InDelta(t, p.MeanItemsetSize-0.5, r.MeanItemsetSize, 0.1)

	require.Greater(t, r.StdSentenceSize, 0.0)
	require.Greater(t, r.StdItemsetSize, 0.0)
	require.Equal(t, 200, r.UniqueItems)
}

func TestReportWriteTextTo(t *testing.T) {
	r := Report{
		MeanSentenceSize: 10.004,
		StdSentenceSize:  1.0149,
		MeanItemsetSize:  3.006,
		StdItemsetSize:   0.99,
		UniqueItems:      200,
	}

	var buf bytes.Buffer
	_, err := r.WriteTextTo(&buf)
	require.NoError(t, err)

	want := `
Actual stats from generated dataset:
  Mean sentence size (itemsets per sequence): 10.00
  Std sentence size: 1.01
  Mean itemset size (items per itemset): 3.01
  Std itemset size: 0.99
  Unique items used: 200
`
	require.Equal(t, want, buf.String())
}

func TestReportWriteJSONTo(t *testing.T) {
	r := Report{Sequences: 2, Itemsets: 3, MeanSentenceSize: 1.5, UniqueItems: 5}

	var buf bytes.Buffer
	_, err := r.WriteJSONTo(&buf)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, 2.0, decoded["sequences"])
	require.Equal(t, 1.5, decoded["mean_sentence_size"])
	require.Equal(t, 5.0, decoded["unique_items"])
}
