// Package erp converts canonical EDI rows into business records and back.
package erp

import (
	"strconv"

	"github.com/shopspring/decimal"

	"infinite-experiment/edigate/internal/models/dtos"
)

// Party identifies a customer, vendor or ship-to location by its business number
type Party struct {
	Number string
	Name   string
}

// LineItem is one ordered, invoiced or shipped product line
type LineItem struct {
	LineNumber       int
	ItemNumber       string
	ItemQualifier    string
	VendorPartNumber string
	BuyerPartNumber  string
	UPC              string
	Description      string
	UnitOfMeasure    string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	// HasPrice is false when the document carried no price for the line
	HasPrice bool
}

// PurchaseOrderDocument is the typed form of an 850
type PurchaseOrderDocument struct {
	PONumber     string
	PODate       string
	DeliveryDate string
	Customer     Party
	Vendor       Party
	ShipTo       Party
	Lines        []LineItem
}

// InvoiceDocument is the typed form of an 810
type InvoiceDocument struct {
	InvoiceNumber string
	InvoiceDate   string
	PONumber      string
	PODate        string
	Customer      Party
	Vendor        Party
	ShipTo        Party
	TotalAmount   *decimal.Decimal
	Lines         []LineItem
}

// ShipNoticeDocument is the typed form of an 856
type ShipNoticeDocument struct {
	ShipmentNumber string
	ShipDate       string
	ShipTime       string
	PONumber       string
	PODate         string
	Carrier        string
	TrackingNumber string
	BillOfLading   string
	Customer       Party
	Vendor         Party
	Lines          []LineItem
}

// Acknowledgment is the typed form of a 997 covering one transaction set
type Acknowledgment struct {
	FunctionalIDCode         string
	GroupControlNumber       string
	TransactionSetID         string
	TransactionControlNumber string
	Accepted                 bool
	// ErrorCode is the AK5 syntax error code reported on rejection
	ErrorCode string
}

// lineFromRow reads the shared line fields. qtyField selects the quantity
// column of the document type.
func lineFromRow(row dtos.Row, qtyField string, index int) (LineItem, bool) {
	if !row.Has(dtos.FieldItemNumber) && !row.Has(qtyField) &&
		!row.Has(dtos.FieldVendorPartNumber) && !row.Has(dtos.FieldBuyerPartNumber) {
		return LineItem{}, false
	}
	line := LineItem{
		LineNumber:       index + 1,
		ItemNumber:       row.Get(dtos.FieldItemNumber),
		ItemQualifier:    row.Get(dtos.FieldItemQualifier),
		VendorPartNumber: row.Get(dtos.FieldVendorPartNumber),
		BuyerPartNumber:  row.Get(dtos.FieldBuyerPartNumber),
		UPC:              row.Get(dtos.FieldUPC),
		Description:      row.Get(dtos.FieldDescription),
		UnitOfMeasure:    row.Get(dtos.FieldUnitOfMeasure),
		Quantity:         parseDecimal(row.Get(qtyField)),
	}
	if n, err := strconv.Atoi(row.Get(dtos.FieldLineNumber)); err == nil && n > 0 {
		line.LineNumber = n
	}
	if p := row.Get(dtos.FieldUnitPrice); p != "" {
		if d, err := decimal.NewFromString(p); err == nil {
			line.UnitPrice, line.HasPrice = d, true
		}
	}
	return line, true
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func headerRow(rows []dtos.Row) dtos.Row {
	if len(rows) == 0 {
		return dtos.Row{}
	}
	return rows[0]
}

func partyFrom(h dtos.Row, numberField, nameField string) Party {
	return Party{Number: h.Get(numberField), Name: h.Get(nameField)}
}

// PurchaseOrderFromRows converts canonical 850 rows
func PurchaseOrderFromRows(rows []dtos.Row) PurchaseOrderDocument {
	h := headerRow(rows)
	doc := PurchaseOrderDocument{
		PONumber:     h.Get(dtos.FieldPONumber),
		PODate:       h.Get(dtos.FieldPODate),
		DeliveryDate: h.Get(dtos.FieldDeliveryDate),
		Customer:     partyFrom(h, dtos.FieldCustomerNumber, dtos.FieldCustomerName),
		Vendor:       partyFrom(h, dtos.FieldVendorNumber, dtos.FieldVendorName),
		ShipTo:       partyFrom(h, dtos.FieldShipToNumber, dtos.FieldShipToName),
	}
	for i, row := range rows {
		if line, ok := lineFromRow(row, dtos.FieldQuantityOrdered, i); ok {
			doc.Lines = append(doc.Lines, line)
		}
	}
	return doc
}

// InvoiceFromRows converts canonical 810 rows
func InvoiceFromRows(rows []dtos.Row) InvoiceDocument {
	h := headerRow(rows)
	doc := InvoiceDocument{
		InvoiceNumber: h.Get(dtos.FieldInvoiceNumber),
		InvoiceDate:   h.Get(dtos.FieldInvoiceDate),
		PONumber:      h.Get(dtos.FieldPONumber),
		PODate:        h.Get(dtos.FieldPODate),
		Customer:      partyFrom(h, dtos.FieldCustomerNumber, dtos.FieldCustomerName),
		Vendor:        partyFrom(h, dtos.FieldVendorNumber, dtos.FieldVendorName),
		ShipTo:        partyFrom(h, dtos.FieldShipToNumber, dtos.FieldShipToName),
	}
	if t := h.Get(dtos.FieldTotalAmount); t != "" {
		if d, err := decimal.NewFromString(t); err == nil {
			doc.TotalAmount = &d
		}
	}
	for i, row := range rows {
		if line, ok := lineFromRow(row, dtos.FieldQuantityInvoiced, i); ok {
			doc.Lines = append(doc.Lines, line)
		}
	}
	return doc
}

// ShipNoticeFromRows converts canonical 856 rows
func ShipNoticeFromRows(rows []dtos.Row) ShipNoticeDocument {
	h := headerRow(rows)
	doc := ShipNoticeDocument{
		ShipmentNumber: h.Get(dtos.FieldShipmentNumber),
		ShipDate:       h.Get(dtos.FieldShipDate),
		ShipTime:       h.Get(dtos.FieldShipTime),
		PONumber:       h.Get(dtos.FieldPONumber),
		PODate:         h.Get(dtos.FieldPODate),
		Carrier:        h.Get(dtos.FieldCarrier),
		TrackingNumber: h.Get(dtos.FieldTrackingNumber),
		BillOfLading:   h.Get(dtos.FieldBillOfLading),
		Customer:       partyFrom(h, dtos.FieldCustomerNumber, dtos.FieldCustomerName),
		Vendor:         partyFrom(h, dtos.FieldVendorNumber, dtos.FieldVendorName),
	}
	for i, row := range rows {
		if line, ok := lineFromRow(row, dtos.FieldQuantityShipped, i); ok {
			doc.Lines = append(doc.Lines, line)
		}
	}
	return doc
}

// AcknowledgmentsFromRows converts canonical 997 rows: one entry per
// acknowledged transaction set, carrying the group identifiers.
func AcknowledgmentsFromRows(rows []dtos.Row) []Acknowledgment {
	var group dtos.Row
	var acks []Acknowledgment
	for _, row := range rows {
		if row.Get(dtos.FieldRecordType) != dtos.RecordTypeTransaction {
			if group == nil {
				group = row
			}
			continue
		}
		code := row.Get(dtos.FieldAcknowledgmentCode)
		acks = append(acks, Acknowledgment{
			TransactionSetID:         row.Get(dtos.FieldTransactionSetID),
			TransactionControlNumber: row.Get(dtos.FieldTransactionControlNumber),
			Accepted:                 code == "" || code == "A" || code == "E",
			ErrorCode:                row.Get(dtos.FieldErrorCode),
		})
	}
	if group == nil {
		group = dtos.Row{}
	}
	groupCode := group.Get(dtos.FieldAcknowledgmentCode)
	if len(acks) == 0 && group.Has(dtos.FieldFunctionalIDCode) {
		acks = append(acks, Acknowledgment{Accepted: groupCode == "" || groupCode == "A" || groupCode == "E"})
	}
	for i := range acks {
		acks[i].FunctionalIDCode = group.Get(dtos.FieldFunctionalIDCode)
		acks[i].GroupControlNumber = group.Get(dtos.FieldGroupControlNumber)
	}
	return acks
}

func (p Party) set(row dtos.Row, numberField, nameField string) {
	if p.Number != "" {
		row[numberField] = p.Number
	}
	if p.Name != "" {
		row[nameField] = p.Name
	}
}

func setIf(row dtos.Row, key, value string) {
	if value != "" {
		row[key] = value
	}
}

func (l LineItem) row(header dtos.Row, qtyField string) dtos.Row {
	row := header.Clone()
	row[dtos.FieldLineNumber] = strconv.Itoa(l.LineNumber)
	setIf(row, dtos.FieldItemNumber, l.ItemNumber)
	setIf(row, dtos.FieldItemQualifier, l.ItemQualifier)
	setIf(row, dtos.FieldVendorPartNumber, l.VendorPartNumber)
	setIf(row, dtos.FieldBuyerPartNumber, l.BuyerPartNumber)
	setIf(row, dtos.FieldUPC, l.UPC)
	setIf(row, dtos.FieldDescription, l.Description)
	setIf(row, dtos.FieldUnitOfMeasure, l.UnitOfMeasure)
	row[qtyField] = l.Quantity.String()
	if l.HasPrice {
		row[dtos.FieldUnitPrice] = l.UnitPrice.StringFixed(2)
	}
	return row
}

func linesToRows(header dtos.Row, lines []LineItem, qtyField string) []dtos.Row {
	if len(lines) == 0 {
		return []dtos.Row{header}
	}
	rows := make([]dtos.Row, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, l.row(header, qtyField))
	}
	return rows
}

// Rows flattens the order into canonical 850 rows, one per line
func (d PurchaseOrderDocument) Rows() []dtos.Row {
	h := dtos.Row{dtos.FieldPONumber: d.PONumber}
	setIf(h, dtos.FieldPODate, d.PODate)
	setIf(h, dtos.FieldDeliveryDate, d.DeliveryDate)
	d.Customer.set(h, dtos.FieldCustomerNumber, dtos.FieldCustomerName)
	d.Vendor.set(h, dtos.FieldVendorNumber, dtos.FieldVendorName)
	d.ShipTo.set(h, dtos.FieldShipToNumber, dtos.FieldShipToName)
	return linesToRows(h, d.Lines, dtos.FieldQuantityOrdered)
}

// Rows flattens the invoice into canonical 810 rows
func (d InvoiceDocument) Rows() []dtos.Row {
	h := dtos.Row{dtos.FieldInvoiceNumber: d.InvoiceNumber}
	setIf(h, dtos.FieldInvoiceDate, d.InvoiceDate)
	setIf(h, dtos.FieldPONumber, d.PONumber)
	setIf(h, dtos.FieldPODate, d.PODate)
	d.Customer.set(h, dtos.FieldCustomerNumber, dtos.FieldCustomerName)
	d.Vendor.set(h, dtos.FieldVendorNumber, dtos.FieldVendorName)
	d.ShipTo.set(h, dtos.FieldShipToNumber, dtos.FieldShipToName)
	if d.TotalAmount != nil {
		h[dtos.FieldTotalAmount] = d.TotalAmount.StringFixed(2)
	}
	return linesToRows(h, d.Lines, dtos.FieldQuantityInvoiced)
}

// Rows flattens the ship notice into canonical 856 rows
func (d ShipNoticeDocument) Rows() []dtos.Row {
	h := dtos.Row{dtos.FieldShipmentNumber: d.ShipmentNumber}
	setIf(h, dtos.FieldShipDate, d.ShipDate)
	setIf(h, dtos.FieldShipTime, d.ShipTime)
	setIf(h, dtos.FieldPONumber, d.PONumber)
	setIf(h, dtos.FieldPODate, d.PODate)
	setIf(h, dtos.FieldCarrier, d.Carrier)
	setIf(h, dtos.FieldTrackingNumber, d.TrackingNumber)
	setIf(h, dtos.FieldBillOfLading, d.BillOfLading)
	d.Customer.set(h, dtos.FieldCustomerNumber, dtos.FieldCustomerName)
	d.Vendor.set(h, dtos.FieldVendorNumber, dtos.FieldVendorName)
	return linesToRows(h, d.Lines, dtos.FieldQuantityShipped)
}
