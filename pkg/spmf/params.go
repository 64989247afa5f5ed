package spmf

import (
	"fmt"

	"github.com/pkg/errors"
)

// Params describe one generation run. They are fixed for the lifetime of a
// Generator.
type Params struct {
	NumSequences     int
	UniverseSize     int
	MeanSentenceSize float64
	StdSentenceSize  float64
	MeanItemsetSize  float64
	StdItemsetSize   float64
	// Seed is nil when the run was seeded from the clock. An unseeded run is
	// not reproducible and its file name carries no seed.
	Seed *int64
}

// WithSeed returns a copy of p seeded with seed.
func (p Params) WithSeed(seed int64) Params {
	p.Seed = &seed
	return p
}

func (p Params) Validate() error {
	if p.NumSequences <= 0 {
		return errors.Errorf("number of sequences must be larger than 0, got %d", p.NumSequences)
	}

	if p.UniverseSize <= 0 {
		return errors.Errorf("item universe size must be larger than 0, got %d", p.UniverseSize)
	}

	if p.StdSentenceSize < 0 {
		return errors.Errorf("std of sentence size must not be negative, got %g", p.StdSentenceSize)
	}

	if p.StdItemsetSize < 0 {
		return errors.Errorf("std of itemset size must not be negative, got %g", p.StdItemsetSize)
	}

	return nil
}

// Filename derives the dataset file name from the parameters, e.g.
// seq50000_u200_ss10.5-1.00_is3.5-1.00_seed42.txt
func (p Params) Filename() string {
	seed := ""
	if p.Seed != nil {
		seed = fmt.Sprintf("_seed%d", *p.Seed)
	}

	return fmt.Sprintf("seq%d_u%d_ss%.1f-%.2f_is%.1f-%.2f%s.txt",
		p.NumSequences, p.UniverseSize,
		p.MeanSentenceSize, p.StdSentenceSize,
		p.MeanItemsetSize, p.StdItemsetSize,
		seed)
}
