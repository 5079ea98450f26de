package erp

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/models/dtos"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// ResolutionError reports a document whose owning customer, vendor or
// purchase order does not exist. Nothing is created for such a document.
type ResolutionError struct {
	Entity    string
	Reference string
}

func (e *ResolutionError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("document has no %s reference", e.Entity)
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.Reference)
}

// Result describes the business record written for one inbound document.
// Warnings lists the rows that could not be resolved and were skipped.
type Result struct {
	EntityType string
	EntityID   string
	Created    bool
	Warnings   []string
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Bridge applies inbound documents to the ERP store and reads business
// records for outbound documents.
type Bridge struct {
	store   Store
	taxRate decimal.Decimal
	now     func() time.Time
}

func NewBridge(store Store) *Bridge {
	return &Bridge{
		store:   store,
		taxRate: decimal.RequireFromString(constants.ERPTaxRate),
		now:     time.Now,
	}
}

// Process routes canonical rows to the processor of the document type
func (b *Bridge) Process(ctx context.Context, tenantID string, docType constants.DocumentType, rows []dtos.Row) (*Result, error) {
	switch docType {
	case constants.DocumentType850:
		return b.Process850(ctx, tenantID, PurchaseOrderFromRows(rows))
	case constants.DocumentType810:
		return b.Process810(ctx, tenantID, InvoiceFromRows(rows))
	case constants.DocumentType856:
		return b.Process856(ctx, tenantID, ShipNoticeFromRows(rows))
	default:
		return nil, fmt.Errorf("no ERP processor for document type %s", docType)
	}
}

type totals struct {
	subtotal decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

func (b *Bridge) computeTotals(subtotal decimal.Decimal) totals {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(b.taxRate).Round(2)
	return totals{subtotal: subtotal, tax: tax, total: subtotal.Add(tax)}
}

// resolveItem tries the item number first, then the partner part numbers
func (b *Bridge) resolveItem(ctx context.Context, tenantID string, line LineItem) (*gormModels.Item, error) {
	for _, ref := range []string{line.ItemNumber, line.VendorPartNumber, line.BuyerPartNumber} {
		if ref == "" {
			continue
		}
		item, err := b.store.FindItem(ctx, tenantID, ref)
		if err != nil || item != nil {
			return item, err
		}
	}
	return nil, nil
}

func lineRef(line LineItem) string {
	for _, ref := range []string{line.ItemNumber, line.VendorPartNumber, line.BuyerPartNumber, line.UPC} {
		if ref != "" {
			return ref
		}
	}
	return ""
}

func parseISODate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func linePrice(line LineItem, item *gormModels.Item) decimal.Decimal {
	if line.HasPrice {
		return line.UnitPrice
	}
	return item.UnitPrice
}

// Process850 creates a sales order from a customer's purchase order, or
// replaces the lines of the order created by an earlier copy of it.
func (b *Bridge) Process850(ctx context.Context, tenantID string, doc PurchaseOrderDocument) (*Result, error) {
	if doc.PONumber == "" {
		return nil, &ResolutionError{Entity: "purchase order number"}
	}
	if doc.Customer.Number == "" {
		return nil, &ResolutionError{Entity: "customer"}
	}
	customer, err := b.store.FindCustomer(ctx, tenantID, doc.Customer.Number)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, &ResolutionError{Entity: "customer", Reference: doc.Customer.Number}
	}

	result := &Result{EntityType: "sales_order"}
	order, err := b.store.FindSalesOrderByCustomerPO(ctx, tenantID, customer.ID, doc.PONumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = &gormModels.SalesOrder{
			TenantID:         tenantID,
			OrderNumber:      "SO-" + doc.PONumber,
			CustomerID:       customer.ID,
			CustomerPONumber: doc.PONumber,
			Status:           "open",
			Source:           "edi",
		}
		result.Created = true
	}
	order.OrderDate = parseISODate(doc.PODate)

	subtotal := decimal.Zero
	order.Lines = nil
	for _, line := range doc.Lines {
		item, err := b.resolveItem(ctx, tenantID, line)
		if err != nil {
			return nil, err
		}
		if item == nil {
			result.warnf("line %d: item %q not found", line.LineNumber, lineRef(line))
			continue
		}
		price := linePrice(line, item)
		lineTotal := line.Quantity.Mul(price).Round(2)
		subtotal = subtotal.Add(lineTotal)

		desc := line.Description
		if desc == "" {
			desc = item.Description
		}
		order.Lines = append(order.Lines, gormModels.SalesOrderLine{
			LineNumber:  line.LineNumber,
			ItemID:      item.ID,
			Description: desc,
			Quantity:    line.Quantity,
			UnitPrice:   price,
			LineTotal:   lineTotal,
		})
	}

	t := b.computeTotals(subtotal)
	order.Subtotal, order.TaxAmount, order.Total = t.subtotal, t.tax, t.total

	if err := b.store.SaveSalesOrder(ctx, order); err != nil {
		return nil, err
	}
	result.EntityID = order.ID
	return result, nil
}

// Process810 records a vendor's invoice as a vendor bill
func (b *Bridge) Process810(ctx context.Context, tenantID string, doc InvoiceDocument) (*Result, error) {
	if doc.InvoiceNumber == "" {
		return nil, &ResolutionError{Entity: "invoice number"}
	}
	if doc.Vendor.Number == "" {
		return nil, &ResolutionError{Entity: "vendor"}
	}
	vendor, err := b.store.FindVendor(ctx, tenantID, doc.Vendor.Number)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, &ResolutionError{Entity: "vendor", Reference: doc.Vendor.Number}
	}

	result := &Result{EntityType: "vendor_bill"}
	bill, err := b.store.FindVendorBill(ctx, tenantID, vendor.ID, doc.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		bill = &gormModels.VendorBill{
			TenantID:      tenantID,
			InvoiceNumber: doc.InvoiceNumber,
			VendorID:      vendor.ID,
			Status:        "draft",
		}
		result.Created = true
	}
	bill.InvoiceDate = parseISODate(doc.InvoiceDate)

	if doc.PONumber != "" {
		po, err := b.store.FindPurchaseOrder(ctx, tenantID, doc.PONumber)
		if err != nil {
			return nil, err
		}
		if po == nil {
			result.warnf("purchase order %q not found", doc.PONumber)
		} else {
			bill.PurchaseOrderID = &po.ID
		}
	}

	subtotal := decimal.Zero
	bill.Lines = nil
	for _, line := range doc.Lines {
		item, err := b.resolveItem(ctx, tenantID, line)
		if err != nil {
			return nil, err
		}
		if item == nil {
			result.warnf("line %d: item %q not found", line.LineNumber, lineRef(line))
			continue
		}
		price := linePrice(line, item)
		lineTotal := line.Quantity.Mul(price).Round(2)
		subtotal = subtotal.Add(lineTotal)

		desc := line.Description
		if desc == "" {
			desc = item.Description
		}
		bill.Lines = append(bill.Lines, gormModels.VendorBillLine{
			LineNumber:  line.LineNumber,
			ItemID:      item.ID,
			Description: desc,
			Quantity:    line.Quantity,
			UnitPrice:   price,
			LineTotal:   lineTotal,
		})
	}

	t := b.computeTotals(subtotal)
	bill.Subtotal, bill.TaxAmount, bill.Total = t.subtotal, t.tax, t.total
	if doc.TotalAmount != nil && !doc.TotalAmount.Equal(t.total) {
		result.warnf("invoice total %s differs from computed total %s", doc.TotalAmount.StringFixed(2), t.total.StringFixed(2))
	}

	if err := b.store.SaveVendorBill(ctx, bill); err != nil {
		return nil, err
	}
	result.EntityID = bill.ID
	return result, nil
}

// Process856 records an advance ship notice against the purchase order it
// references and adds the shipped quantities to the received quantities.
// A ship notice already recorded for the purchase order is not counted again.
func (b *Bridge) Process856(ctx context.Context, tenantID string, doc ShipNoticeDocument) (*Result, error) {
	if doc.PONumber == "" {
		return nil, &ResolutionError{Entity: "purchase order"}
	}
	if doc.ShipmentNumber == "" {
		return nil, &ResolutionError{Entity: "shipment number"}
	}
	po, err := b.store.FindPurchaseOrder(ctx, tenantID, doc.PONumber)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, &ResolutionError{Entity: "purchase order", Reference: doc.PONumber}
	}

	existing, err := b.store.FindShipment(ctx, tenantID, po.ID, doc.ShipmentNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		result := &Result{EntityType: "inbound_shipment", EntityID: existing.ID}
		result.warnf("ship notice %s already recorded for purchase order %s", doc.ShipmentNumber, doc.PONumber)
		return result, nil
	}

	result := &Result{EntityType: "inbound_shipment", Created: true}
	if doc.Vendor.Number != "" {
		vendor, err := b.store.FindVendor(ctx, tenantID, doc.Vendor.Number)
		if err != nil {
			return nil, err
		}
		if vendor == nil {
			return nil, &ResolutionError{Entity: "vendor", Reference: doc.Vendor.Number}
		}
		if vendor.ID != po.VendorID {
			result.warnf("vendor %q is not the vendor of purchase order %s", doc.Vendor.Number, doc.PONumber)
		}
	}

	shipment := &gormModels.InboundShipment{
		TenantID:        tenantID,
		ShipmentNumber:  doc.ShipmentNumber,
		PurchaseOrderID: po.ID,
		VendorID:        po.VendorID,
		ShipDate:        parseISODate(doc.ShipDate),
		Carrier:         doc.Carrier,
		TrackingNumber:  doc.TrackingNumber,
	}

	for _, line := range doc.Lines {
		item, err := b.resolveItem(ctx, tenantID, line)
		if err != nil {
			return nil, err
		}
		if item == nil {
			result.warnf("line %d: item %q not found", line.LineNumber, lineRef(line))
			continue
		}
		shipment.Lines = append(shipment.Lines, gormModels.InboundShipmentLine{
			ItemID:   item.ID,
			Quantity: line.Quantity,
		})

		matched := false
		for i := range po.Lines {
			if po.Lines[i].ItemID == item.ID {
				po.Lines[i].QuantityReceived = po.Lines[i].QuantityReceived.Add(line.Quantity)
				matched = true
				break
			}
		}
		if !matched {
			result.warnf("line %d: item %q is not on purchase order %s", line.LineNumber, item.ItemNumber, doc.PONumber)
		}
	}

	po.Status = receiptStatus(po)
	if err := b.store.RecordShipment(ctx, shipment, po); err != nil {
		return nil, err
	}
	result.EntityID = shipment.ID
	return result, nil
}

func receiptStatus(po *gormModels.PurchaseOrder) string {
	if len(po.Lines) == 0 {
		return po.Status
	}
	received, complete := false, true
	for _, l := range po.Lines {
		if l.QuantityReceived.IsPositive() {
			received = true
		}
		if l.QuantityReceived.LessThan(l.Quantity) {
			complete = false
		}
	}
	switch {
	case complete:
		return "received"
	case received:
		return "partially_received"
	default:
		return po.Status
	}
}
