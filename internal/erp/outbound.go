package erp

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// Generate reads the business record behind an outbound document and
// returns it as canonical rows
func (b *Bridge) Generate(ctx context.Context, tenantID string, docType constants.DocumentType, entityID string) ([]dtos.Row, error) {
	switch docType {
	case constants.DocumentType850:
		doc, err := b.Generate850(ctx, tenantID, entityID)
		if err != nil {
			return nil, err
		}
		return doc.Rows(), nil
	case constants.DocumentType810:
		doc, err := b.Generate810(ctx, tenantID, entityID)
		if err != nil {
			return nil, err
		}
		return doc.Rows(), nil
	case constants.DocumentType856:
		doc, err := b.Generate856(ctx, tenantID, entityID)
		if err != nil {
			return nil, err
		}
		return doc.Rows(), nil
	default:
		return nil, fmt.Errorf("no ERP generator for document type %s", docType)
	}
}

func itemLine(lineNumber int, item gormModels.Item, desc string) LineItem {
	if desc == "" {
		desc = item.Description
	}
	return LineItem{
		LineNumber:    lineNumber,
		ItemNumber:    item.ItemNumber,
		ItemQualifier: "VP",
		Description:   desc,
		UnitOfMeasure: item.UnitOfMeasure,
		HasPrice:      true,
	}
}

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// Generate850 builds the purchase order sent to a vendor
func (b *Bridge) Generate850(ctx context.Context, tenantID, purchaseOrderID string) (PurchaseOrderDocument, error) {
	po, err := b.store.GetPurchaseOrder(ctx, tenantID, purchaseOrderID)
	if err != nil {
		return PurchaseOrderDocument{}, err
	}
	if po == nil {
		return PurchaseOrderDocument{}, &ResolutionError{Entity: "purchase order", Reference: purchaseOrderID}
	}

	doc := PurchaseOrderDocument{
		PONumber: po.PONumber,
		Vendor:   Party{Number: po.Vendor.VendorNumber, Name: po.Vendor.Name},
	}
	if po.OrderDate != nil {
		doc.PODate = isoDate(*po.OrderDate)
	}
	for i, l := range po.Lines {
		line := itemLine(lineNo(l.LineNumber, i), l.Item, l.Description)
		line.Quantity, line.UnitPrice = l.Quantity, l.UnitPrice
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

// Generate810 builds the invoice for a customer's sales order
func (b *Bridge) Generate810(ctx context.Context, tenantID, salesOrderID string) (InvoiceDocument, error) {
	order, err := b.store.GetSalesOrder(ctx, tenantID, salesOrderID)
	if err != nil {
		return InvoiceDocument{}, err
	}
	if order == nil {
		return InvoiceDocument{}, &ResolutionError{Entity: "sales order", Reference: salesOrderID}
	}

	total := order.Total
	doc := InvoiceDocument{
		InvoiceNumber: "INV-" + order.OrderNumber,
		InvoiceDate:   isoDate(b.now()),
		PONumber:      order.CustomerPONumber,
		Customer:      Party{Number: order.Customer.CustomerNumber, Name: order.Customer.Name},
		TotalAmount:   &total,
	}
	if order.OrderDate != nil {
		doc.PODate = isoDate(*order.OrderDate)
	}
	for i, l := range order.Lines {
		line := itemLine(lineNo(l.LineNumber, i), l.Item, l.Description)
		line.Quantity, line.UnitPrice = l.Quantity, l.UnitPrice
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

// Generate856 builds the ship notice for a sales order shipped in full
func (b *Bridge) Generate856(ctx context.Context, tenantID, salesOrderID string) (ShipNoticeDocument, error) {
	order, err := b.store.GetSalesOrder(ctx, tenantID, salesOrderID)
	if err != nil {
		return ShipNoticeDocument{}, err
	}
	if order == nil {
		return ShipNoticeDocument{}, &ResolutionError{Entity: "sales order", Reference: salesOrderID}
	}

	now := b.now()
	doc := ShipNoticeDocument{
		ShipmentNumber: "ASN-" + order.OrderNumber,
		ShipDate:       isoDate(now),
		ShipTime:       now.Format("1504"),
		PONumber:       order.CustomerPONumber,
		Customer:       Party{Number: order.Customer.CustomerNumber, Name: order.Customer.Name},
	}
	if order.OrderDate != nil {
		doc.PODate = isoDate(*order.OrderDate)
	}
	for i, l := range order.Lines {
		line := itemLine(lineNo(l.LineNumber, i), l.Item, l.Description)
		line.Quantity, line.HasPrice = l.Quantity, false
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

func lineNo(n, index int) int {
	if n > 0 {
		return n
	}
	return index + 1
}

// Generate997 builds the group and transaction rows acknowledging one
// transaction set. It has no side effects.
func Generate997(ack Acknowledgment) []dtos.Row {
	code, accepted := "A", "1"
	if !ack.Accepted {
		code, accepted = "R", "0"
	}

	group := dtos.Row{
		dtos.FieldRecordType:         dtos.RecordTypeGroup,
		dtos.FieldFunctionalIDCode:   ack.FunctionalIDCode,
		dtos.FieldGroupControlNumber: ack.GroupControlNumber,
		dtos.FieldAcknowledgmentCode: code,
		dtos.FieldSetsIncluded:       "1",
		dtos.FieldSetsReceived:       "1",
		dtos.FieldSetsAccepted:       accepted,
	}
	tx := dtos.Row{
		dtos.FieldRecordType:               dtos.RecordTypeTransaction,
		dtos.FieldTransactionSetID:         ack.TransactionSetID,
		dtos.FieldTransactionControlNumber: ack.TransactionControlNumber,
		dtos.FieldAcknowledgmentCode:       code,
	}
	if !ack.Accepted && ack.ErrorCode != "" {
		tx[dtos.FieldErrorCode] = ack.ErrorCode
	}
	return []dtos.Row{group, tx}
}

// AcknowledgmentFor describes the acknowledgment owed for a received set
func AcknowledgmentFor(functionalID, groupControl, setID, setControl string, accepted bool) Acknowledgment {
	ack := Acknowledgment{
		FunctionalIDCode:         functionalID,
		GroupControlNumber:       groupControl,
		TransactionSetID:         setID,
		TransactionControlNumber: setControl,
		Accepted:                 accepted,
	}
	if !accepted {
		// 5: one or more segments in error
		ack.ErrorCode = "5"
	}
	return ack
}
