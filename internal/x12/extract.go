package x12

import (
	"fmt"

	"github.com/shopspring/decimal"

	"infinite-experiment/edigate/internal/models/dtos"
)

// rowBuilder accumulates header fields across the whole transaction set and
// line rows separately. Header values are merged into every line at the end
// with line values taking precedence.
type rowBuilder struct {
	header dtos.Row
	lines  []dtos.Row
}

func newRowBuilder() *rowBuilder {
	return &rowBuilder{header: dtos.Row{}}
}

func (b *rowBuilder) set(key, value string) {
	if value != "" {
		b.header[key] = value
	}
}

func (b *rowBuilder) addLine(line dtos.Row) {
	b.lines = append(b.lines, line)
}

func (b *rowBuilder) last() dtos.Row {
	if len(b.lines) == 0 {
		return nil
	}
	return b.lines[len(b.lines)-1]
}

func (b *rowBuilder) rows() []dtos.Row {
	if len(b.lines) == 0 {
		return []dtos.Row{b.header.Clone()}
	}
	out := make([]dtos.Row, 0, len(b.lines))
	for _, line := range b.lines {
		row := b.header.Clone()
		for k, v := range line {
			row[k] = v
		}
		out = append(out, row)
	}
	return out
}

func putIf(row dtos.Row, key, value string) {
	if value != "" {
		row[key] = value
	}
}

// applyProductIDs reads qualifier/id pairs starting at element start.
// The first pair becomes itemNumber; later pairs are keyed by qualifier.
func applyProductIDs(row dtos.Row, seg Segment, start int) {
	for pos := start; pos+1 <= len(seg.Elements); pos += 2 {
		qual, id := seg.Element(pos), seg.Element(pos+1)
		if id == "" {
			continue
		}
		if _, ok := row[dtos.FieldItemNumber]; !ok {
			row[dtos.FieldItemNumber] = id
			putIf(row, dtos.FieldItemQualifier, qual)
			continue
		}
		switch qual {
		case "VP", "VN":
			row[dtos.FieldVendorPartNumber] = id
		case "BP", "IN":
			row[dtos.FieldBuyerPartNumber] = id
		case "UP", "UK":
			row[dtos.FieldUPC] = id
		}
	}
}

// applyParty maps an N1 segment to customer, ship-to or vendor fields
func applyParty(b *rowBuilder, seg Segment) {
	name, id := seg.Element(2), seg.Element(4)
	switch seg.Element(1) {
	case "BY", "BT":
		b.set(dtos.FieldCustomerName, name)
		b.set(dtos.FieldCustomerNumber, id)
	case "ST":
		b.set(dtos.FieldShipToName, name)
		b.set(dtos.FieldShipToNumber, id)
	case "SE", "VN", "SU", "RE", "SF":
		b.set(dtos.FieldVendorName, name)
		b.set(dtos.FieldVendorNumber, id)
	}
}

// Extract850Data flattens a purchase order into one row per PO1 line
func Extract850Data(set *TransactionSet) []dtos.Row {
	b := newRowBuilder()
	for _, seg := range set.Segments {
		switch seg.Tag {
		case "BEG":
			b.set(dtos.FieldPurposeCode, seg.Element(1))
			b.set(dtos.FieldOrderType, seg.Element(2))
			b.set(dtos.FieldPONumber, seg.Element(3))
			b.set(dtos.FieldPODate, FromX12Date(seg.Element(5)))
		case "DTM":
			if seg.Element(1) == "002" {
				b.set(dtos.FieldDeliveryDate, FromX12Date(seg.Element(2)))
			}
		case "N1":
			applyParty(b, seg)
		case "PO1":
			line := dtos.Row{}
			putIf(line, dtos.FieldLineNumber, seg.Element(1))
			putIf(line, dtos.FieldQuantityOrdered, seg.Element(2))
			putIf(line, dtos.FieldUnitOfMeasure, seg.Element(3))
			putIf(line, dtos.FieldUnitPrice, seg.Element(4))
			applyProductIDs(line, seg, 6)
			b.addLine(line)
		case "PID":
			if last := b.last(); last != nil {
				putIf(last, dtos.FieldDescription, seg.Element(5))
			}
		}
	}
	return b.rows()
}

// Extract810Data flattens an invoice into one row per IT1 line
func Extract810Data(set *TransactionSet) []dtos.Row {
	b := newRowBuilder()
	for _, seg := range set.Segments {
		switch seg.Tag {
		case "BIG":
			b.set(dtos.FieldInvoiceDate, FromX12Date(seg.Element(1)))
			b.set(dtos.FieldInvoiceNumber, seg.Element(2))
			b.set(dtos.FieldPODate, FromX12Date(seg.Element(3)))
			b.set(dtos.FieldPONumber, seg.Element(4))
		case "N1":
			applyParty(b, seg)
		case "IT1":
			line := dtos.Row{}
			putIf(line, dtos.FieldLineNumber, seg.Element(1))
			putIf(line, dtos.FieldQuantityInvoiced, seg.Element(2))
			putIf(line, dtos.FieldUnitOfMeasure, seg.Element(3))
			putIf(line, dtos.FieldUnitPrice, seg.Element(4))
			applyProductIDs(line, seg, 6)
			b.addLine(line)
		case "PID":
			if last := b.last(); last != nil {
				putIf(last, dtos.FieldDescription, seg.Element(5))
			}
		case "TDS":
			b.set(dtos.FieldTotalAmount, FromImpliedCents(seg.Element(1)))
		}
	}
	return b.rows()
}

// Extract856Data flattens a ship notice into one row per SN1 line.
// HL starts a new loop. A LIN after the SN1 of its loop annotates that
// line when it has no item yet, otherwise it is held for the next SN1.
func Extract856Data(set *TransactionSet) []dtos.Row {
	b := newRowBuilder()
	// pending holds a LIN seen before its SN1; loopLine is the SN1 row of
	// the current HL loop.
	var pending, loopLine dtos.Row
	for _, seg := range set.Segments {
		switch seg.Tag {
		case "HL":
			pending, loopLine = nil, nil
		case "BSN":
			b.set(dtos.FieldPurposeCode, seg.Element(1))
			b.set(dtos.FieldShipmentNumber, seg.Element(2))
			b.set(dtos.FieldShipDate, FromX12Date(seg.Element(3)))
			b.set(dtos.FieldShipTime, seg.Element(4))
		case "PRF":
			b.set(dtos.FieldPONumber, seg.Element(1))
			b.set(dtos.FieldPODate, FromX12Date(seg.Element(4)))
		case "TD5":
			b.set(dtos.FieldCarrier, seg.Element(3))
		case "REF":
			switch seg.Element(1) {
			case "CN", "2I":
				b.set(dtos.FieldTrackingNumber, seg.Element(2))
			case "BM":
				b.set(dtos.FieldBillOfLading, seg.Element(2))
			}
		case "N1":
			applyParty(b, seg)
		case "LIN":
			ids := dtos.Row{}
			putIf(ids, dtos.FieldLineNumber, seg.Element(1))
			applyProductIDs(ids, seg, 2)
			if loopLine != nil && !loopLine.Has(dtos.FieldItemNumber) && pending == nil {
				for k, v := range ids {
					if !loopLine.Has(k) {
						loopLine[k] = v
					}
				}
			} else {
				pending = ids
			}
		case "SN1":
			line := dtos.Row{}
			for k, v := range pending {
				line[k] = v
			}
			pending = nil
			putIf(line, dtos.FieldLineNumber, seg.Element(1))
			putIf(line, dtos.FieldQuantityShipped, seg.Element(2))
			putIf(line, dtos.FieldUnitOfMeasure, seg.Element(3))
			b.addLine(line)
			loopLine = line
		case "PID":
			if last := b.last(); last != nil {
				putIf(last, dtos.FieldDescription, seg.Element(5))
			}
		}
	}
	return b.rows()
}

// Extract997Data returns the group-level acknowledgment row followed by one
// row per acknowledged transaction set.
func Extract997Data(set *TransactionSet) []dtos.Row {
	group := dtos.Row{dtos.FieldRecordType: dtos.RecordTypeGroup}
	var txs []dtos.Row
	for _, seg := range set.Segments {
		switch seg.Tag {
		case "AK1":
			putIf(group, dtos.FieldFunctionalIDCode, seg.Element(1))
			putIf(group, dtos.FieldGroupControlNumber, seg.Element(2))
		case "AK2":
			row := dtos.Row{dtos.FieldRecordType: dtos.RecordTypeTransaction}
			putIf(row, dtos.FieldTransactionSetID, seg.Element(1))
			putIf(row, dtos.FieldTransactionControlNumber, seg.Element(2))
			txs = append(txs, row)
		case "AK5":
			if len(txs) > 0 {
				last := txs[len(txs)-1]
				putIf(last, dtos.FieldAcknowledgmentCode, seg.Element(1))
				putIf(last, dtos.FieldErrorCode, seg.Element(2))
			}
		case "AK9":
			putIf(group, dtos.FieldAcknowledgmentCode, seg.Element(1))
			putIf(group, dtos.FieldSetsIncluded, seg.Element(2))
			putIf(group, dtos.FieldSetsReceived, seg.Element(3))
			putIf(group, dtos.FieldSetsAccepted, seg.Element(4))
			putIf(group, dtos.FieldErrorCode, seg.Element(5))
		}
	}
	return append([]dtos.Row{group}, txs...)
}

// ExtractData dispatches on the transaction set type
func ExtractData(set *TransactionSet) ([]dtos.Row, error) {
	switch set.Type {
	case "850":
		return Extract850Data(set), nil
	case "810":
		return Extract810Data(set), nil
	case "856":
		return Extract856Data(set), nil
	case "997":
		return Extract997Data(set), nil
	default:
		return nil, fmt.Errorf("unsupported transaction set %q", set.Type)
	}
}

// FromX12Date converts CCYYMMDD or YYMMDD to YYYY-MM-DD; other values pass through
func FromX12Date(s string) string {
	if !allDigits(s) {
		return s
	}
	switch len(s) {
	case 8:
		return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
	case 6:
		return "20" + s[0:2] + "-" + s[2:4] + "-" + s[4:6]
	}
	return s
}

// ToX12Date converts YYYY-MM-DD to CCYYMMDD; other values pass through
func ToX12Date(s string) string {
	if len(s) == 10 && s[4] == '-' && s[7] == '-' && allDigits(s[0:4]+s[5:7]+s[8:10]) {
		return s[0:4] + s[5:7] + s[8:10]
	}
	return s
}

// FromImpliedCents reads an N2 amount ("12345" is 123.45)
func FromImpliedCents(s string) string {
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.Shift(-2).StringFixed(2)
}

// ToImpliedCents writes an amount as an N2 value
func ToImpliedCents(s string) string {
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.Shift(2).Round(0).String()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
