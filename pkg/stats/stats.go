// Package stats reduces generated SPMF sequences to the moments reported
// after a run.
package stats

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/semi-technologies/spmfgen/pkg/spmf"
)

// Collector observes sequences as they are generated, so the dataset never
// has to be parsed back from text.
type Collector struct {
	sentenceSizes []float64
	itemsetSizes  []float64
	items         map[int]struct{}
}

func NewCollector() *Collector {
	return &Collector{items: make(map[int]struct{})}
}

func (c *Collector) Observe(seq spmf.Sequence) {
	c.sentenceSizes = append(c.sentenceSizes, float64(len(seq)))
	for _, set := range seq {
		c.itemsetSizes = append(c.itemsetSizes, float64(len(set)))
		for _, item := range set {
			c.items[item] = struct{}{}
		}
	}
}

type Report struct {
	Sequences        int     `json:"sequences"`
	Itemsets         int     `json:"itemsets"`
	MeanSentenceSize float64 `json:"mean_sentence_size"`
	StdSentenceSize  float64 `json:"std_sentence_size"`
	MeanItemsetSize  float64 `json:"mean_itemset_size"`
	StdItemsetSize   float64 `json:"std_itemset_size"`
	UniqueItems      int     `json:"unique_items"`
}

func (c *Collector) Report() Report {
	r := Report{
		Sequences:   len(c.sentenceSizes),
		Itemsets:    len(c.itemsetSizes),
		UniqueItems: len(c.items),
	}
	r.MeanSentenceSize, r.StdSentenceSize = moments(c.sentenceSizes)
	r.MeanItemsetSize, r.StdItemsetSize = moments(c.itemsetSizes)
	return r
}

// moments returns the mean and the sample (n-1) standard deviation. The
// standard deviation of fewer than two values is 0.
func moments(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}

	return stat.MeanStdDev(x, nil)
}

func (r Report) WriteTextTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "\nActual stats from generated dataset:\n"+
		"  Mean sentence size (itemsets per sequence): %.2f\n"+
		"  Std sentence size: %.2f\n"+
		"  Mean itemset size (items per itemset): %.2f\n"+
		"  Std itemset size: %.2f\n"+
		"  Unique items used: %d\n",
		r.MeanSentenceSize, r.StdSentenceSize,
		r.MeanItemsetSize, r.StdItemsetSize,
		r.UniqueItems)
	return int64(n), err
}

func (r Report) WriteJSONTo(w io.Writer) (int, error) {
	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return 0, err
	}

	return w.Write(append(bytes, '\n'))
}
