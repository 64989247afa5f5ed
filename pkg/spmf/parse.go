package spmf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const maxLineSize = 1024 * 1024

// ParseError describes malformed SPMF text. Line is 0 when the error comes
// from ParseLine directly.
type ParseError struct {
	Line  int
	Token string
	Msg   string
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Token != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Token)
	}

	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// ParseLine is the inverse of Sequence.String.
func ParseLine(line string) (Sequence, error) {
	fields := strings.Fields(line)

	var (
		seq Sequence
		cur Itemset
	)

	for i, tok := range fields {
		switch tok {
		case ItemsetEnd:
			if len(cur) == 0 {
				return nil, &ParseError{Token: tok, Msg: "empty itemset before"}
			}
			seq = append(seq, cur)
			cur = nil
		case SequenceEnd:
			if len(cur) > 0 {
				return nil, &ParseError{Token: tok, Msg: "unterminated itemset before"}
			}
			if len(seq) == 0 {
				return nil, &ParseError{Msg: "sequence without itemsets"}
			}
			if i != len(fields)-1 {
				return nil, &ParseError{Token: fields[i+1], Msg: "unexpected token after sequence end"}
			}
			return seq, nil
		default:
			item, err := strconv.Atoi(tok)
			if err != nil || item < 1 {
				return nil, &ParseError{Token: tok, Msg: "invalid item"}
			}
			cur = append(cur, item)
		}
	}

	return nil, &ParseError{Msg: "missing sequence terminator " + SequenceEnd}
}

// Scanner reads SPMF sequences line by line. Blank lines are skipped.
type Scanner struct {
	sc   *bufio.Scanner
	line int
	seq  Sequence
	err  error
}

func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{sc: sc}
}

func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}

	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text == "" {
			continue
		}

		seq, err := ParseLine(text)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = s.line
			}
			s.err = err
			return false
		}

		s.seq = seq
		return true
	}

	if err := s.sc.Err(); err != nil {
		s.err = errors.Wrapf(err, "read line %d", s.line+1)
	}
	return false
}

// Sequence returns the sequence read by the last successful Scan.
func (s *Scanner) Sequence() Sequence {
	return s.seq
}

func (s *Scanner) Err() error {
	return s.err
}
