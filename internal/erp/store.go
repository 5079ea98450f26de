package erp

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	gormModels "infinite-experiment/edigate/internal/models/gorm"
)

// Store is the slice of the ERP database the bridge reads and writes.
// Lookups return nil, nil when nothing matches.
type Store interface {
	FindCustomer(ctx context.Context, tenantID, number string) (*gormModels.Customer, error)
	FindVendor(ctx context.Context, tenantID, number string) (*gormModels.Vendor, error)
	FindItem(ctx context.Context, tenantID, number string) (*gormModels.Item, error)

	FindSalesOrderByCustomerPO(ctx context.Context, tenantID, customerID, poNumber string) (*gormModels.SalesOrder, error)
	GetSalesOrder(ctx context.Context, tenantID, id string) (*gormModels.SalesOrder, error)
	SaveSalesOrder(ctx context.Context, order *gormModels.SalesOrder) error

	FindPurchaseOrder(ctx context.Context, tenantID, poNumber string) (*gormModels.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, tenantID, id string) (*gormModels.PurchaseOrder, error)
	SavePurchaseOrder(ctx context.Context, order *gormModels.PurchaseOrder) error

	FindVendorBill(ctx context.Context, tenantID, vendorID, invoiceNumber string) (*gormModels.VendorBill, error)
	SaveVendorBill(ctx context.Context, bill *gormModels.VendorBill) error

	FindShipment(ctx context.Context, tenantID, purchaseOrderID, shipmentNumber string) (*gormModels.InboundShipment, error)
	// RecordShipment stores the shipment and the received quantities of the
	// purchase order in one transaction
	RecordShipment(ctx context.Context, shipment *gormModels.InboundShipment, order *gormModels.PurchaseOrder) error
}

// GormStore implements Store on the application database
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func first[T any](q *gorm.DB, what string) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", what, err)
	}
	return &out, nil
}

func (s *GormStore) FindCustomer(ctx context.Context, tenantID, number string) (*gormModels.Customer, error) {
	return first[gormModels.Customer](s.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_number = ?", tenantID, number), "customer")
}

func (s *GormStore) FindVendor(ctx context.Context, tenantID, number string) (*gormModels.Vendor, error) {
	return first[gormModels.Vendor](s.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_number = ?", tenantID, number), "vendor")
}

func (s *GormStore) FindItem(ctx context.Context, tenantID, number string) (*gormModels.Item, error) {
	return first[gormModels.Item](s.db.WithContext(ctx).
		Where("tenant_id = ? AND item_number = ?", tenantID, number), "item")
}

func (s *GormStore) FindSalesOrderByCustomerPO(ctx context.Context, tenantID, customerID, poNumber string) (*gormModels.SalesOrder, error) {
	return first[gormModels.SalesOrder](s.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND customer_po_number = ?", tenantID, customerID, poNumber), "sales order")
}

func (s *GormStore) GetSalesOrder(ctx context.Context, tenantID, id string) (*gormModels.SalesOrder, error) {
	return first[gormModels.SalesOrder](s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Preload("Lines.Item").
		Where("tenant_id = ? AND id = ?", tenantID, id), "sales order")
}

// SaveSalesOrder inserts or updates the order and replaces its lines
func (s *GormStore) SaveSalesOrder(ctx context.Context, order *gormModels.SalesOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := order.Lines
		order.Lines = nil
		defer func() { order.Lines = lines }()

		if err := tx.Omit("Customer").Save(order).Error; err != nil {
			return fmt.Errorf("failed to save sales order: %w", err)
		}
		if err := tx.Where("sales_order_id = ?", order.ID).Delete(&gormModels.SalesOrderLine{}).Error; err != nil {
			return fmt.Errorf("failed to clear sales order lines: %w", err)
		}
		for i := range lines {
			lines[i].ID = ""
			lines[i].SalesOrderID = order.ID
		}
		if len(lines) > 0 {
			if err := tx.Omit("Item").Create(&lines).Error; err != nil {
				return fmt.Errorf("failed to save sales order lines: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) FindPurchaseOrder(ctx context.Context, tenantID, poNumber string) (*gormModels.PurchaseOrder, error) {
	return first[gormModels.PurchaseOrder](s.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Preload("Lines.Item").
		Where("tenant_id = ? AND po_number = ?", tenantID, poNumber), "purchase order")
}

func (s *GormStore) GetPurchaseOrder(ctx context.Context, tenantID, id string) (*gormModels.PurchaseOrder, error) {
	return first[gormModels.PurchaseOrder](s.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Preload("Lines.Item").
		Where("tenant_id = ? AND id = ?", tenantID, id), "purchase order")
}

// SavePurchaseOrder stores the order header and its lines as they are
func (s *GormStore) SavePurchaseOrder(ctx context.Context, order *gormModels.PurchaseOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return savePurchaseOrder(tx, order)
	})
}

func savePurchaseOrder(tx *gorm.DB, order *gormModels.PurchaseOrder) error {
	if err := tx.Omit("Vendor", "Lines").Save(order).Error; err != nil {
		return fmt.Errorf("failed to save purchase order: %w", err)
	}
	for i := range order.Lines {
		order.Lines[i].PurchaseOrderID = order.ID
		if err := tx.Omit("Item").Save(&order.Lines[i]).Error; err != nil {
			return fmt.Errorf("failed to save purchase order line: %w", err)
		}
	}
	return nil
}

func (s *GormStore) FindVendorBill(ctx context.Context, tenantID, vendorID, invoiceNumber string) (*gormModels.VendorBill, error) {
	return first[gormModels.VendorBill](s.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_id = ? AND invoice_number = ?", tenantID, vendorID, invoiceNumber), "vendor bill")
}

// SaveVendorBill inserts or updates the bill and replaces its lines
func (s *GormStore) SaveVendorBill(ctx context.Context, bill *gormModels.VendorBill) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := bill.Lines
		bill.Lines = nil
		defer func() { bill.Lines = lines }()

		if err := tx.Save(bill).Error; err != nil {
			return fmt.Errorf("failed to save vendor bill: %w", err)
		}
		if err := tx.Where("vendor_bill_id = ?", bill.ID).Delete(&gormModels.VendorBillLine{}).Error; err != nil {
			return fmt.Errorf("failed to clear vendor bill lines: %w", err)
		}
		for i := range lines {
			lines[i].ID = ""
			lines[i].VendorBillID = bill.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("failed to save vendor bill lines: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) FindShipment(ctx context.Context, tenantID, purchaseOrderID, shipmentNumber string) (*gormModels.InboundShipment, error) {
	return first[gormModels.InboundShipment](s.db.WithContext(ctx).
		Where("tenant_id = ? AND purchase_order_id = ? AND shipment_number = ?", tenantID, purchaseOrderID, shipmentNumber), "inbound shipment")
}

func (s *GormStore) RecordShipment(ctx context.Context, shipment *gormModels.InboundShipment, order *gormModels.PurchaseOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(shipment).Error; err != nil {
			return fmt.Errorf("failed to save inbound shipment: %w", err)
		}
		return savePurchaseOrder(tx, order)
	})
}
