package x12

import (
	"fmt"
	"strconv"

	"infinite-experiment/edigate/internal/models/dtos"
)

// Body segment builders. Rows use the canonical field names produced by the
// extractors, so Extract850Data(Generate850Segments(rows)) yields the same
// header fields and line quantities/prices.

func header(rows []dtos.Row) dtos.Row {
	if len(rows) == 0 {
		return dtos.Row{}
	}
	return rows[0]
}

func lineNumber(row dtos.Row, i int) string {
	if v := row.Get(dtos.FieldLineNumber); v != "" {
		return v
	}
	return strconv.Itoa(i + 1)
}

func productIDs(row dtos.Row) []string {
	var ids []string
	if item := row.Get(dtos.FieldItemNumber); item != "" {
		ids = append(ids, defaultString(row.Get(dtos.FieldItemQualifier), "VP"), item)
	}
	if v := row.Get(dtos.FieldBuyerPartNumber); v != "" {
		ids = append(ids, "BP", v)
	}
	if v := row.Get(dtos.FieldUPC); v != "" {
		ids = append(ids, "UP", v)
	}
	return ids
}

func partySegments(h dtos.Row, customerQual, vendorQual string) []Segment {
	var segs []Segment
	if name, id := h.Get(dtos.FieldCustomerName), h.Get(dtos.FieldCustomerNumber); name != "" || id != "" {
		segs = append(segs, party(customerQual, name, id))
	}
	if name, id := h.Get(dtos.FieldShipToName), h.Get(dtos.FieldShipToNumber); name != "" || id != "" {
		segs = append(segs, party("ST", name, id))
	}
	if name, id := h.Get(dtos.FieldVendorName), h.Get(dtos.FieldVendorNumber); name != "" || id != "" {
		segs = append(segs, party(vendorQual, name, id))
	}
	return segs
}

func party(qual, name, id string) Segment {
	if id == "" {
		return NewSegment("N1", qual, name)
	}
	return NewSegment("N1", qual, name, "92", id)
}

func description(row dtos.Row) []Segment {
	if d := row.Get(dtos.FieldDescription); d != "" {
		return []Segment{NewSegment("PID", "F", "", "", "", d)}
	}
	return nil
}

func hasLine(row dtos.Row, qtyField string) bool {
	return row.Has(dtos.FieldItemNumber) || row.Has(qtyField)
}

// Generate850Segments builds BEG, N1, PO1/PID and CTT segments
func Generate850Segments(rows []dtos.Row) ([]Segment, error) {
	h := header(rows)
	if h.Get(dtos.FieldPONumber) == "" {
		return nil, fmt.Errorf("850 requires %s", dtos.FieldPONumber)
	}
	segs := []Segment{NewSegment("BEG",
		defaultString(h.Get(dtos.FieldPurposeCode), "00"),
		defaultString(h.Get(dtos.FieldOrderType), "SA"),
		h.Get(dtos.FieldPONumber), "",
		ToX12Date(h.Get(dtos.FieldPODate)),
	)}
	if d := h.Get(dtos.FieldDeliveryDate); d != "" {
		segs = append(segs, NewSegment("DTM", "002", ToX12Date(d)))
	}
	segs = append(segs, partySegments(h, "BY", "SE")...)

	lines := 0
	for i, row := range rows {
		if !hasLine(row, dtos.FieldQuantityOrdered) {
			continue
		}
		lines++
		el := []string{lineNumber(row, i), row.Get(dtos.FieldQuantityOrdered),
			defaultString(row.Get(dtos.FieldUnitOfMeasure), "EA"), row.Get(dtos.FieldUnitPrice), ""}
		segs = append(segs, NewSegment("PO1", append(el, productIDs(row)...)...))
		segs = append(segs, description(row)...)
	}
	segs = append(segs, NewSegment("CTT", strconv.Itoa(lines)))
	return segs, nil
}

// Generate810Segments builds BIG, N1, IT1/PID, TDS and CTT segments
func Generate810Segments(rows []dtos.Row) ([]Segment, error) {
	h := header(rows)
	if h.Get(dtos.FieldInvoiceNumber) == "" {
		return nil, fmt.Errorf("810 requires %s", dtos.FieldInvoiceNumber)
	}
	segs := []Segment{NewSegment("BIG",
		ToX12Date(h.Get(dtos.FieldInvoiceDate)),
		h.Get(dtos.FieldInvoiceNumber),
		ToX12Date(h.Get(dtos.FieldPODate)),
		h.Get(dtos.FieldPONumber),
	)}
	segs = append(segs, partySegments(h, "BT", "RE")...)

	lines := 0
	for i, row := range rows {
		if !hasLine(row, dtos.FieldQuantityInvoiced) {
			continue
		}
		lines++
		el := []string{lineNumber(row, i), row.Get(dtos.FieldQuantityInvoiced),
			defaultString(row.Get(dtos.FieldUnitOfMeasure), "EA"), row.Get(dtos.FieldUnitPrice), ""}
		segs = append(segs, NewSegment("IT1", append(el, productIDs(row)...)...))
		segs = append(segs, description(row)...)
	}
	if total := h.Get(dtos.FieldTotalAmount); total != "" {
		segs = append(segs, NewSegment("TDS", ToImpliedCents(total)))
	}
	segs = append(segs, NewSegment("CTT", strconv.Itoa(lines)))
	return segs, nil
}

// Generate856Segments builds a shipment/order/item HL hierarchy
func Generate856Segments(rows []dtos.Row) ([]Segment, error) {
	h := header(rows)
	if h.Get(dtos.FieldShipmentNumber) == "" {
		return nil, fmt.Errorf("856 requires %s", dtos.FieldShipmentNumber)
	}
	shipTime := h.Get(dtos.FieldShipTime)
	if shipTime == "" {
		shipTime = "0000"
	}
	segs := []Segment{
		NewSegment("BSN", defaultString(h.Get(dtos.FieldPurposeCode), "00"),
			h.Get(dtos.FieldShipmentNumber), ToX12Date(h.Get(dtos.FieldShipDate)), shipTime),
		NewSegment("HL", "1", "", "S"),
	}
	if c := h.Get(dtos.FieldCarrier); c != "" {
		segs = append(segs, NewSegment("TD5", "B", "2", c))
	}
	if t := h.Get(dtos.FieldTrackingNumber); t != "" {
		segs = append(segs, NewSegment("REF", "CN", t))
	}
	if bol := h.Get(dtos.FieldBillOfLading); bol != "" {
		segs = append(segs, NewSegment("REF", "BM", bol))
	}
	segs = append(segs, partySegments(h, "BY", "SF")...)
	segs = append(segs, NewSegment("HL", "2", "1", "O"))
	if po := h.Get(dtos.FieldPONumber); po != "" {
		segs = append(segs, NewSegment("PRF", po, "", "", ToX12Date(h.Get(dtos.FieldPODate))))
	}

	hl := 2
	for i, row := range rows {
		if !hasLine(row, dtos.FieldQuantityShipped) {
			continue
		}
		hl++
		segs = append(segs, NewSegment("HL", strconv.Itoa(hl), "2", "I"))
		segs = append(segs, NewSegment("LIN", append([]string{lineNumber(row, i)}, productIDs(row)...)...))
		segs = append(segs, NewSegment("SN1", lineNumber(row, i), row.Get(dtos.FieldQuantityShipped),
			defaultString(row.Get(dtos.FieldUnitOfMeasure), "EA")))
		segs = append(segs, description(row)...)
	}
	segs = append(segs, NewSegment("CTT", strconv.Itoa(hl-2)))
	return segs, nil
}

// Generate997Segments builds AK1, AK2/AK5 per transaction row and AK9.
// The group row carries the AK1/AK9 fields.
func Generate997Segments(rows []dtos.Row) ([]Segment, error) {
	var group dtos.Row
	var txs []dtos.Row
	for _, row := range rows {
		if row.Get(dtos.FieldRecordType) == dtos.RecordTypeTransaction {
			txs = append(txs, row)
		} else if group == nil {
			group = row
		}
	}
	if group == nil || group.Get(dtos.FieldFunctionalIDCode) == "" {
		return nil, fmt.Errorf("997 requires a group row with %s", dtos.FieldFunctionalIDCode)
	}

	segs := []Segment{NewSegment("AK1", group.Get(dtos.FieldFunctionalIDCode), group.Get(dtos.FieldGroupControlNumber))}
	accepted := 0
	for _, tx := range txs {
		code := defaultString(tx.Get(dtos.FieldAcknowledgmentCode), "A")
		if code == "A" || code == "E" {
			accepted++
		}
		segs = append(segs, NewSegment("AK2", tx.Get(dtos.FieldTransactionSetID), tx.Get(dtos.FieldTransactionControlNumber)))
		if ec := tx.Get(dtos.FieldErrorCode); ec != "" {
			segs = append(segs, NewSegment("AK5", code, ec))
		} else {
			segs = append(segs, NewSegment("AK5", code))
		}
	}

	count := strconv.Itoa(len(txs))
	included := defaultString(group.Get(dtos.FieldSetsIncluded), count)
	received := defaultString(group.Get(dtos.FieldSetsReceived), count)
	acceptedCount := defaultString(group.Get(dtos.FieldSetsAccepted), strconv.Itoa(accepted))
	groupCode := group.Get(dtos.FieldAcknowledgmentCode)
	if groupCode == "" {
		groupCode = "A"
		if accepted < len(txs) {
			groupCode = "R"
		}
	}
	ak9 := []string{groupCode, included, received, acceptedCount}
	if ec := group.Get(dtos.FieldErrorCode); ec != "" {
		ak9 = append(ak9, ec)
	}
	segs = append(segs, NewSegment("AK9", ak9...))
	return segs, nil
}

// GenerateSegments dispatches on the transaction set
func GenerateSegments(transactionSetID string, rows []dtos.Row) ([]Segment, error) {
	switch transactionSetID {
	case "850":
		return Generate850Segments(rows)
	case "810":
		return Generate810Segments(rows)
	case "856":
		return Generate856Segments(rows)
	case "997":
		return Generate997Segments(rows)
	default:
		return nil, fmt.Errorf("unsupported transaction set %q", transactionSetID)
	}
}
