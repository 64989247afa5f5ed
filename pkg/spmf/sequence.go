// Package spmf generates random sequence datasets and reads and writes them
// in the SPMF sequence format.
package spmf

import (
	"bufio"
	"io"
	"strconv"
)

// Terminator tokens of the SPMF sequence format.
const (
	ItemsetEnd  = "-1"
	SequenceEnd = "-2"
)

// Itemset is a set of item ids kept in ascending order.
type Itemset []int

// Sequence is one sentence of the dataset, a single line in the SPMF file.
type Sequence []Itemset

// Dataset is the ordered list of generated sequences.
type Dataset []Sequence

// Append renders the sequence in SPMF form onto b, e.g. "3 7 -1 1 -1 -2".
func (s Sequence) Append(b []byte) []byte {
	for i, set := range s {
		if i > 0 {
			b = append(b, ' ')
		}
		for _, item := range set {
			b = strconv.AppendInt(b, int64(item), 10)
			b = append(b, ' ')
		}
		b = append(b, ItemsetEnd...)
	}

	if len(s) > 0 {
		b = append(b, ' ')
	}

	return append(b, SequenceEnd...)
}

func (s Sequence) String() string {
	return string(s.Append(nil))
}

// Lines renders the first n sequences, or all of them if n exceeds the
// dataset size.
func (d Dataset) Lines(n int) []string {
	n = min(n, len(d))
	lines := make([]string, 0, n)
	for _, seq := range d[:n] {
		lines = append(lines, seq.String())
	}
	return lines
}

// WriteTo writes one sequence per line. The count is the number of bytes w
// accepted, which is less than the rendered size when a write fails.
func (d Dataset) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	var buf []byte
	for _, seq := range d {
		buf = seq.Append(buf[:0])
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return cw.n, err
		}
	}

	err := bw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
