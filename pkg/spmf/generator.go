package spmf

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// SamplingError is returned when a sampled itemset size cannot be drawn
// without replacement from the item universe.
type SamplingError struct {
	Requested int
	Universe  int
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("cannot sample %d distinct items from a universe of %d items",
		e.Requested, e.Universe)
}

// Observer is notified of every sequence a Generator builds into a Dataset.
type Observer interface {
	Observe(Sequence)
}

// ObserverFunc adapts a plain function to an Observer.
type ObserverFunc func(Sequence)

func (f ObserverFunc) Observe(seq Sequence) {
	f(seq)
}

// NewSource returns the random source used for seeded runs.
func NewSource(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), uint64(seed))
}

// Generator produces random SPMF sequences. It owns its random source and is
// not safe for concurrent use; independent generators built from sources with
// the same seed produce identical output.
type Generator struct {
	params   Params
	rnd      *rand.Rand
	sentence distuv.Normal
	itemset  distuv.Normal
	picked   map[int]struct{}
}

func NewGenerator(p Params, src rand.Source) *Generator {
	return &Generator{
		params: p,
		rnd:    rand.New(src),
		sentence: distuv.Normal{
			Mu:    p.MeanSentenceSize,
			Sigma: p.StdSentenceSize,
			Src:   src,
		},
		itemset: distuv.Normal{
			Mu:    p.MeanItemsetSize,
			Sigma: p.StdItemsetSize,
			Src:   src,
		},
		picked: make(map[int]struct{}),
	}
}

// GenerateSequence draws one sentence. Its length and the size of each of its
// itemsets are normal samples truncated toward zero and floored at 1.
func (g *Generator) GenerateSequence() (Sequence, error) {
	sentenceSize := sampleSize(g.sentence)

	seq := make(Sequence, 0, sentenceSize)
	for i := 0; i < sentenceSize; i++ {
		itemsetSize := sampleSize(g.itemset)
		if itemsetSize > g.params.UniverseSize {
			return nil, &SamplingError{Requested: itemsetSize, Universe: g.params.UniverseSize}
		}

		seq = append(seq, g.sampleItemset(itemsetSize))
	}

	return seq, nil
}

// Dataset generates n sequences in order and hands each one to the observers.
func (g *Generator) Dataset(n int, observers ...Observer) (Dataset, error) {
	ds := make(Dataset, 0, n)
	for i := 0; i < n; i++ {
		seq, err := g.GenerateSequence()
		if err != nil {
			return nil, errors.Wrapf(err, "generate sequence %d", i)
		}

		for _, o := range observers {
			o.Observe(seq)
		}
		ds = append(ds, seq)
	}

	return ds, nil
}

// The integer conversion truncates toward zero, it does not round.
func sampleSize(n distuv.Normal) int {
	return max(1, int(n.Rand()))
}

// sampleItemset draws k distinct items from [1, UniverseSize] with Floyd's
// algorithm and returns them sorted.
func (g *Generator) sampleItemset(k int) Itemset {
	clear(g.picked)

	n := g.params.UniverseSize
	set := make(Itemset, 0, k)
	for j := n - k + 1; j <= n; j++ {
		t := g.rnd.IntN(j) + 1
		if _, ok := g.picked[t]; ok {
			t = j
		}
		g.picked[t] = struct{}{}
		set = append(set, t)
	}

	slices.Sort(set)
	return set
}
