// Package x12 parses and generates ANSI X12 interchanges for the 850, 810,
// 856 and 997 transaction sets.
package x12

import (
	"errors"
	"fmt"
)

// Delimiters are the three separator characters of an interchange
type Delimiters struct {
	Element   byte
	Segment   byte
	Component byte
}

// DefaultDelimiters are used when generating and as parse fallbacks
var DefaultDelimiters = Delimiters{Element: '*', Segment: '~', Component: ':'}

// Segment is an ordered element list addressed by position.
// Elements[0] holds the first data element (e.g. BEG01).
type Segment struct {
	Tag      string
	Elements []string
}

// NewSegment builds a segment from its tag and data elements
func NewSegment(tag string, elements ...string) Segment {
	return Segment{Tag: tag, Elements: elements}
}

// Element returns the 1-based data element, or "" when the segment is shorter.
func (s Segment) Element(pos int) string {
	if pos < 1 || pos > len(s.Elements) {
		return ""
	}
	return s.Elements[pos-1]
}

// TransactionSet is one ST..SE document
type TransactionSet struct {
	Type          string
	ControlNumber string
	Segments      []Segment
}

// FunctionalGroup is one GS..GE group
type FunctionalGroup struct {
	FunctionalID    string
	SenderCode      string
	ReceiverCode    string
	Date            string
	Time            string
	ControlNumber   string
	Version         string
	TransactionSets []*TransactionSet
}

// Interchange is the ISA..IEA envelope
type Interchange struct {
	SenderQualifier   string
	SenderID          string
	ReceiverQualifier string
	ReceiverID        string
	Date              string
	Time              string
	ControlNumber     string
	UsageIndicator    string
	Delimiters        Delimiters
	FunctionalGroups  []*FunctionalGroup
}

// TransactionSets flattens every transaction set of every group in order
func (ic *Interchange) TransactionSets() []*TransactionSet {
	var sets []*TransactionSet
	for _, g := range ic.FunctionalGroups {
		sets = append(sets, g.TransactionSets...)
	}
	return sets
}

// ErrEmptyInterchange is returned when the input holds no segments
var ErrEmptyInterchange = errors.New("x12: empty interchange")

// StructuralError reports envelope nesting violations such as ST without GS
type StructuralError struct {
	Position int
	Tag      string
	Reason   string
}

func (e *StructuralError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("x12 structural error at segment %d: %s", e.Position, e.Reason)
	}
	return fmt.Sprintf("x12 structural error at segment %d (%s): %s", e.Position, e.Tag, e.Reason)
}
