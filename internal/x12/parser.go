package x12

import (
	"strings"
)

// isaLength is the fixed width of an ISA segment including its terminator
const isaLength = 106

// DetectDelimiters reads the separators from the ISA header.
// The element separator is always the fourth character. The segment
// terminator is taken from position 106 of a fixed-width header; for a
// short header it follows the component separator after the sixteenth
// element separator. Otherwise "~" is assumed when present, then newline.
func DetectDelimiters(raw string) Delimiters {
	d := DefaultDelimiters
	if len(raw) <= 3 {
		return d
	}
	d.Element = raw[3]

	if len(raw) >= isaLength && isSeparator(raw[isaLength-1], d.Element) &&
		strings.Count(raw[:isaLength-1], string(d.Element)) == 16 {
		d.Segment = raw[isaLength-1]
		if c := raw[isaLength-2]; c != d.Segment && c != d.Element {
			d.Component = c
		}
		return d
	}

	if p := nthIndex(raw, d.Element, 16); p >= 0 && p+2 < len(raw) && isSeparator(raw[p+2], d.Element) {
		d.Segment = raw[p+2]
		if c := raw[p+1]; c != d.Segment && c != d.Element {
			d.Component = c
		}
		return d
	}

	if strings.IndexByte(raw, '~') >= 0 && d.Element != '~' {
		d.Segment = '~'
	} else {
		d.Segment = '\n'
	}
	return d
}

func nthIndex(s string, c byte, n int) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			n--
			if n == 0 {
				return i
			}
		}
	}
	return -1
}

func isSeparator(c, element byte) bool {
	if c == element || c == ' ' {
		return false
	}
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return false
	}
	return true
}

// Parse turns raw interchange text into the ISA/GS/ST hierarchy.
// Business segments outside an open ST are dropped. SE/GE/IEA counts are
// not validated.
func Parse(raw string) (*Interchange, error) {
	content := strings.TrimLeft(raw, "\ufeff \t\r\n")
	if content == "" {
		return nil, ErrEmptyInterchange
	}
	if !strings.HasPrefix(content, "ISA") {
		return nil, &StructuralError{Position: 1, Reason: "interchange must begin with an ISA segment"}
	}

	delims := DetectDelimiters(content)
	ic := &Interchange{Delimiters: delims}

	var (
		group *FunctionalGroup
		set   *TransactionSet
		pos   int
	)

	for _, part := range strings.Split(content, string(delims.Segment)) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pos++

		elements := strings.Split(part, string(delims.Element))
		seg := Segment{Tag: strings.TrimSpace(elements[0]), Elements: elements[1:]}

		switch seg.Tag {
		case "ISA":
			ic.SenderQualifier = strings.TrimSpace(seg.Element(5))
			ic.SenderID = strings.TrimSpace(seg.Element(6))
			ic.ReceiverQualifier = strings.TrimSpace(seg.Element(7))
			ic.ReceiverID = strings.TrimSpace(seg.Element(8))
			ic.Date = seg.Element(9)
			ic.Time = seg.Element(10)
			ic.ControlNumber = strings.TrimSpace(seg.Element(13))
			ic.UsageIndicator = seg.Element(15)
		case "GS":
			group = &FunctionalGroup{
				FunctionalID:  seg.Element(1),
				SenderCode:    strings.TrimSpace(seg.Element(2)),
				ReceiverCode:  strings.TrimSpace(seg.Element(3)),
				Date:          seg.Element(4),
				Time:          seg.Element(5),
				ControlNumber: seg.Element(6),
				Version:       seg.Element(8),
			}
			ic.FunctionalGroups = append(ic.FunctionalGroups, group)
			set = nil
		case "ST":
			if group == nil {
				return nil, &StructuralError{Position: pos, Tag: seg.Tag, Reason: "transaction set header outside a functional group"}
			}
			set = &TransactionSet{Type: seg.Element(1), ControlNumber: seg.Element(2)}
			group.TransactionSets = append(group.TransactionSets, set)
		case "SE":
			set = nil
		case "GE":
			group, set = nil, nil
		case "IEA":
			group, set = nil, nil
		default:
			if set != nil {
				set.Segments = append(set.Segments, seg)
			}
		}
	}

	return ic, nil
}
