package erp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"infinite-experiment/edigate/internal/constants"
	"infinite-experiment/edigate/internal/db/dbtest"
	"infinite-experiment/edigate/internal/models/dtos"
	gormModels "infinite-experiment/edigate/internal/models/gorm"
	"infinite-experiment/edigate/internal/x12"
)

const tenant = "11111111-1111-1111-1111-111111111111"

type fixture struct {
	db       *gorm.DB
	bridge   *Bridge
	customer gormModels.Customer
	vendor   gormModels.Vendor
	widget   gormModels.Item
	gadget   gormModels.Item
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	f := &fixture{
		db:       gdb,
		bridge:   NewBridge(NewGormStore(gdb)),
		customer: gormModels.Customer{TenantID: tenant, CustomerNumber: "CUST-001", Name: "Acme Retail"},
		vendor:   gormModels.Vendor{TenantID: tenant, VendorNumber: "VEND-7", Name: "Parts Co"},
		widget:   gormModels.Item{TenantID: tenant, ItemNumber: "WIDGET-9", Description: "Widget", UnitPrice: d("5.00"), UnitOfMeasure: "EA"},
		gadget:   gormModels.Item{TenantID: tenant, ItemNumber: "GADGET-1", Description: "Gadget", UnitPrice: d("12.50"), UnitOfMeasure: "EA"},
	}
	require.NoError(t, gdb.Create(&f.customer).Error)
	require.NoError(t, gdb.Create(&f.vendor).Error)
	require.NoError(t, gdb.Create(&f.widget).Error)
	require.NoError(t, gdb.Create(&f.gadget).Error)
	f.bridge.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return f
}

func (f *fixture) purchaseOrder(t *testing.T) *gormModels.PurchaseOrder {
	t.Helper()
	po := &gormModels.PurchaseOrder{
		TenantID: tenant,
		PONumber: "PO-500",
		VendorID: f.vendor.ID,
		Status:   "sent",
		Lines: []gormModels.PurchaseOrderLine{
			{LineNumber: 1, ItemID: f.widget.ID, Quantity: d("10"), UnitPrice: d("4.00")},
			{LineNumber: 2, ItemID: f.gadget.ID, Quantity: d("2"), UnitPrice: d("11.00")},
		},
	}
	require.NoError(t, NewGormStore(f.db).SavePurchaseOrder(context.Background(), po))
	return po
}

func TestProcess850_CreatesSalesOrderWithTax(t *testing.T) {
	f := newFixture(t)
	rows := []dtos.Row{
		{"poNumber": "PO-1001", "poDate": "2026-03-01", "customerNumber": "CUST-001", "lineNumber": "1", "itemNumber": "WIDGET-9", "quantityOrdered": "10", "unitPrice": "5.00"},
		{"poNumber": "PO-1001", "poDate": "2026-03-01", "customerNumber": "CUST-001", "lineNumber": "2", "itemNumber": "NOPE", "quantityOrdered": "1"},
		{"poNumber": "PO-1001", "poDate": "2026-03-01", "customerNumber": "CUST-001", "lineNumber": "3", "vendorPartNumber": "GADGET-1", "quantityOrdered": "2"},
	}

	res, err := f.bridge.Process(context.Background(), tenant, constants.DocumentType850, rows)
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `"NOPE"`)

	order, err := NewGormStore(f.db).GetSalesOrder(context.Background(), tenant, res.EntityID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "SO-PO-1001", order.OrderNumber)
	assert.Equal(t, "PO-1001", order.CustomerPONumber)
	require.Len(t, order.Lines, 2)
	// 10 x 5.00 + 2 x 12.50 (item price) = 75.00
	assert.True(t, order.Subtotal.Equal(d("75")), order.Subtotal.String())
	assert.True(t, order.TaxAmount.Equal(d("6")), order.TaxAmount.String())
	assert.True(t, order.Total.Equal(d("81")), order.Total.String())
}

func TestProcess850_UnknownCustomerCreatesNothing(t *testing.T) {
	f := newFixture(t)
	rows := []dtos.Row{{"poNumber": "PO-1", "customerNumber": "GHOST", "itemNumber": "WIDGET-9", "quantityOrdered": "1"}}

	_, err := f.bridge.Process(context.Background(), tenant, constants.DocumentType850, rows)
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, "customer", resErr.Entity)

	var count int64
	require.NoError(t, f.db.Model(&gormModels.SalesOrder{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProcess850_RepeatedOrderUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := PurchaseOrderDocument{
		PONumber: "PO-77",
		Customer: Party{Number: "CUST-001"},
		Lines:    []LineItem{{LineNumber: 1, ItemNumber: "WIDGET-9", Quantity: d("1")}},
	}
	first, err := f.bridge.Process850(ctx, tenant, doc)
	require.NoError(t, err)

	doc.Lines[0].Quantity = d("3")
	second, err := f.bridge.Process850(ctx, tenant, doc)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.EntityID, second.EntityID)

	var lines []gormModels.SalesOrderLine
	require.NoError(t, f.db.Where("sales_order_id = ?", first.EntityID).Find(&lines).Error)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Quantity.Equal(d("3")))
}

func TestProcess810_CreatesVendorBillLinkedToPO(t *testing.T) {
	f := newFixture(t)
	po := f.purchaseOrder(t)
	total := d("99.99")
	doc := InvoiceDocument{
		InvoiceNumber: "INV-9",
		InvoiceDate:   "2026-03-10",
		PONumber:      "PO-500",
		Vendor:        Party{Number: "VEND-7"},
		TotalAmount:   &total,
		Lines: []LineItem{
			{LineNumber: 1, ItemNumber: "WIDGET-9", Quantity: d("10"), UnitPrice: d("4.00"), HasPrice: true},
		},
	}

	res, err := f.bridge.Process810(context.Background(), tenant, doc)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "43.20")

	var bill gormModels.VendorBill
	require.NoError(t, f.db.Preload("Lines").First(&bill, "id = ?", res.EntityID).Error)
	require.NotNil(t, bill.PurchaseOrderID)
	assert.Equal(t, po.ID, *bill.PurchaseOrderID)
	assert.True(t, bill.Total.Equal(d("43.2")), bill.Total.String())
	assert.Len(t, bill.Lines, 1)
}

func TestProcess810_UnknownVendorIsFatal(t *testing.T) {
	f := newFixture(t)
	_, err := f.bridge.Process810(context.Background(), tenant, InvoiceDocument{InvoiceNumber: "X", Vendor: Party{Number: "NOPE"}})
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "vendor", resErr.Entity)
}

func TestProcess856_UpdatesReceivedQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchaseOrder(t)

	doc := ShipNoticeDocument{
		ShipmentNumber: "SHIP-1",
		ShipDate:       "2026-03-12",
		PONumber:       "PO-500",
		Carrier:        "UPSN",
		Lines: []LineItem{
			{LineNumber: 1, ItemNumber: "WIDGET-9", Quantity: d("10")},
			{LineNumber: 2, ItemNumber: "UNKNOWN", Quantity: d("1")},
		},
	}
	res, err := f.bridge.Process856(ctx, tenant, doc)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	po, err := NewGormStore(f.db).FindPurchaseOrder(ctx, tenant, "PO-500")
	require.NoError(t, err)
	assert.Equal(t, "partially_received", po.Status)
	assert.True(t, po.Lines[0].QuantityReceived.Equal(d("10")))

	doc.ShipmentNumber = "SHIP-2"
	doc.Lines = []LineItem{{LineNumber: 1, ItemNumber: "GADGET-1", Quantity: d("2")}}
	_, err = f.bridge.Process856(ctx, tenant, doc)
	require.NoError(t, err)

	po, err = NewGormStore(f.db).FindPurchaseOrder(ctx, tenant, "PO-500")
	require.NoError(t, err)
	assert.Equal(t, "received", po.Status)

	var shipments int64
	require.NoError(t, f.db.Model(&gormModels.InboundShipment{}).Count(&shipments).Error)
	assert.Equal(t, int64(2), shipments)
}

func TestProcess856_RedeliveredShipNoticeCountsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.purchaseOrder(t)

	doc := ShipNoticeDocument{
		ShipmentNumber: "SHIP-7",
		PONumber:       "PO-500",
		Lines:          []LineItem{{LineNumber: 1, ItemNumber: "WIDGET-9", Quantity: d("4")}},
	}
	initial, err := f.bridge.Process856(ctx, tenant, doc)
	require.NoError(t, err)
	assert.True(t, initial.Created)

	again, err := f.bridge.Process856(ctx, tenant, doc)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, initial.EntityID, again.EntityID)
	require.Len(t, again.Warnings, 1)
	assert.Contains(t, again.Warnings[0], "already recorded")

	po, err := NewGormStore(f.db).FindPurchaseOrder(ctx, tenant, "PO-500")
	require.NoError(t, err)
	assert.True(t, po.Lines[0].QuantityReceived.Equal(d("4")), "received %s", po.Lines[0].QuantityReceived)
	assert.Equal(t, "partially_received", po.Status)

	var shipments int64
	require.NoError(t, f.db.Model(&gormModels.InboundShipment{}).Count(&shipments).Error)
	assert.Equal(t, int64(1), shipments)

	dup := &gormModels.InboundShipment{TenantID: tenant, ShipmentNumber: "SHIP-7", PurchaseOrderID: po.ID, VendorID: po.VendorID}
	assert.Error(t, f.db.Create(dup).Error)
}

func TestProcess856_MissingShipmentNumberIsFatal(t *testing.T) {
	f := newFixture(t)
	f.purchaseOrder(t)
	_, err := f.bridge.Process856(context.Background(), tenant, ShipNoticeDocument{PONumber: "PO-500"})
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "shipment number", resErr.Entity)
}

func TestProcess856_UnknownPurchaseOrderIsFatal(t *testing.T) {
	f := newFixture(t)
	_, err := f.bridge.Process856(context.Background(), tenant, ShipNoticeDocument{ShipmentNumber: "S", PONumber: "PO-404"})
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "PO-404", resErr.Reference)
}

func TestGenerate810_RoundTripsThroughX12(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.bridge.Process850(ctx, tenant, PurchaseOrderDocument{
		PONumber: "PO-2",
		PODate:   "2026-03-01",
		Customer: Party{Number: "CUST-001"},
		Lines:    []LineItem{{LineNumber: 1, ItemNumber: "WIDGET-9", Quantity: d("4")}},
	})
	require.NoError(t, err)

	rows, err := f.bridge.Generate(ctx, tenant, constants.DocumentType810, res.EntityID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "INV-SO-PO-2", rows[0]["invoiceNumber"])
	assert.Equal(t, "2026-03-14", rows[0]["invoiceDate"])
	assert.Equal(t, "21.60", rows[0]["totalAmount"])

	segs, err := x12.Generate810Segments(rows)
	require.NoError(t, err)
	text, _, err := x12.BuildInterchange(x12.EnvelopeOptions{SenderID: "ME", ReceiverID: "THEM"}, "810", segs)
	require.NoError(t, err)
	ic, err := x12.Parse(text)
	require.NoError(t, err)
	back, err := x12.ExtractData(ic.TransactionSets()[0])
	require.NoError(t, err)
	assert.Equal(t, "21.60", back[0]["totalAmount"])
	assert.Equal(t, "4", back[0]["quantityInvoiced"])
	assert.Equal(t, "CUST-001", back[0]["customerNumber"])
}

func TestGenerate856_UsesOrderQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.bridge.Process850(ctx, tenant, PurchaseOrderDocument{
		PONumber: "PO-3",
		Customer: Party{Number: "CUST-001"},
		Lines:    []LineItem{{LineNumber: 1, ItemNumber: "GADGET-1", Quantity: d("6")}},
	})
	require.NoError(t, err)

	doc, err := f.bridge.Generate856(ctx, tenant, res.EntityID)
	require.NoError(t, err)
	assert.Equal(t, "ASN-SO-PO-3", doc.ShipmentNumber)
	assert.Equal(t, "0930", doc.ShipTime)
	require.Len(t, doc.Lines, 1)
	assert.True(t, doc.Lines[0].Quantity.Equal(d("6")))
}

func TestGenerate850_FromPurchaseOrder(t *testing.T) {
	f := newFixture(t)
	po := f.purchaseOrder(t)

	doc, err := f.bridge.Generate850(context.Background(), tenant, po.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-500", doc.PONumber)
	assert.Equal(t, "VEND-7", doc.Vendor.Number)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "WIDGET-9", doc.Lines[0].ItemNumber)

	_, err = f.bridge.Generate850(context.Background(), tenant, "99999999-9999-9999-9999-999999999999")
	var resErr *ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestGenerate997_Rejection(t *testing.T) {
	rows := Generate997(AcknowledgmentFor("PO", "17", "850", "0001", false))
	require.Len(t, rows, 2)
	assert.Equal(t, "R", rows[0][dtos.FieldAcknowledgmentCode])
	assert.Equal(t, "0", rows[0][dtos.FieldSetsAccepted])
	assert.Equal(t, "R", rows[1][dtos.FieldAcknowledgmentCode])
	assert.Equal(t, "5", rows[1][dtos.FieldErrorCode])

	segs, err := x12.Generate997Segments(rows)
	require.NoError(t, err)
	ak9 := segs[len(segs)-1]
	assert.Equal(t, "AK9", ak9.Tag)
	assert.Equal(t, "R", ak9.Element(1))

	acks := AcknowledgmentsFromRows(rows)
	require.Len(t, acks, 1)
	assert.False(t, acks[0].Accepted)
	assert.Equal(t, "17", acks[0].GroupControlNumber)
}

func TestGenerate997_Acceptance(t *testing.T) {
	rows := Generate997(AcknowledgmentFor("IN", "8", "810", "0002", true))
	assert.Equal(t, "A", rows[0][dtos.FieldAcknowledgmentCode])
	assert.Equal(t, "1", rows[0][dtos.FieldSetsAccepted])
	_, hasError := rows[1][dtos.FieldErrorCode]
	assert.False(t, hasError)
}
