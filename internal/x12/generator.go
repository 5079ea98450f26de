package x12

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	interchangeVersion = "00401"
	groupVersion       = "004010"
	repetitionSep      = "U"
	maxControlNumber   = 999_999_999
)

// EnvelopeOptions carries the partner identifiers for an outbound interchange
type EnvelopeOptions struct {
	SenderQualifier   string
	SenderID          string
	ReceiverQualifier string
	ReceiverID        string
	// UsageIndicator is "P" (production) or "T" (test); defaults to "P"
	UsageIndicator string
	// ControlNumber is used for ISA13, GS06 and ST02. Zero draws a random one.
	ControlNumber int64
	Timestamp     time.Time
	Delimiters    *Delimiters
}

// FunctionalIDCode maps a transaction set to its GS01 code
func FunctionalIDCode(transactionSetID string) string {
	switch transactionSetID {
	case "850":
		return "PO"
	case "810":
		return "IN"
	case "856":
		return "SH"
	case "997":
		return "FA"
	default:
		return ""
	}
}

// GenerateControlNumber draws a control number in 1..999999999.
// Numbers are random, not sequential, so collisions between interchanges
// sent to the same partner are possible.
func GenerateControlNumber() int64 {
	return rand.Int63n(maxControlNumber) + 1
}

// BuildInterchange wraps the body segments of one transaction set in
// ST/SE, GS/GE and ISA/IEA envelopes. It returns the interchange text and the
// control number shared by all three envelopes.
func BuildInterchange(opts EnvelopeOptions, transactionSetID string, body []Segment) (string, int64, error) {
	funcID := FunctionalIDCode(transactionSetID)
	if funcID == "" {
		return "", 0, fmt.Errorf("unsupported transaction set %q", transactionSetID)
	}

	delims := DefaultDelimiters
	if opts.Delimiters != nil {
		delims = *opts.Delimiters
	}
	control := opts.ControlNumber
	if control <= 0 {
		control = GenerateControlNumber()
	}
	if control > maxControlNumber {
		return "", 0, fmt.Errorf("control number %d exceeds nine digits", control)
	}
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	usage := opts.UsageIndicator
	if usage == "" {
		usage = "P"
	}
	senderQual := defaultString(opts.SenderQualifier, "ZZ")
	receiverQual := defaultString(opts.ReceiverQualifier, "ZZ")

	isaControl := fmt.Sprintf("%09d", control)
	groupControl := strconv.FormatInt(control, 10)
	setControl := fmt.Sprintf("%04d", control)

	segments := []Segment{
		NewSegment("ISA",
			"00", pad("", 10),
			"00", pad("", 10),
			pad(senderQual, 2), pad(opts.SenderID, 15),
			pad(receiverQual, 2), pad(opts.ReceiverID, 15),
			ts.Format("060102"), ts.Format("1504"),
			repetitionSep, interchangeVersion, isaControl,
			"0", usage, string(delims.Component),
		),
		NewSegment("GS", funcID, opts.SenderID, opts.ReceiverID,
			ts.Format("20060102"), ts.Format("1504"), groupControl, "X", groupVersion),
		NewSegment("ST", transactionSetID, setControl),
	}
	segments = append(segments, body...)
	segments = append(segments,
		NewSegment("SE", strconv.Itoa(len(body)+2), setControl),
		NewSegment("GE", "1", groupControl),
		NewSegment("IEA", "1", isaControl),
	)

	if err := checkISA(segments[0], delims); err != nil {
		return "", 0, err
	}
	var b strings.Builder
	for _, seg := range segments {
		if err := checkElements(seg, delims); err != nil {
			return "", 0, err
		}
		b.WriteString(seg.Tag)
		for _, el := range seg.Elements {
			b.WriteByte(delims.Element)
			b.WriteString(el)
		}
		b.WriteByte(delims.Segment)
	}
	return b.String(), control, nil
}

func checkElements(seg Segment, d Delimiters) error {
	for i, el := range seg.Elements {
		if strings.IndexByte(el, d.Element) >= 0 || strings.IndexByte(el, d.Segment) >= 0 {
			return fmt.Errorf("%s%02d contains a delimiter character", seg.Tag, i+1)
		}
	}
	return nil
}

// checkISA rejects the component separator in every ISA element but ISA16
func checkISA(isa Segment, d Delimiters) error {
	for i, el := range isa.Elements[:len(isa.Elements)-1] {
		if strings.IndexByte(el, d.Component) >= 0 {
			return fmt.Errorf("ISA%02d contains a delimiter character", i+1)
		}
	}
	return nil
}

// pad right-pads or truncates s to exactly n characters
func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
