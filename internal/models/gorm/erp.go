package gorm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	gormlib "gorm.io/gorm"
)

// Business entities owned by the surrounding ERP application. The engine only
// reads them by business-facing identifiers and creates/updates EDI-sourced rows.

type Customer struct {
	ID             string    `gorm:"column:id;primaryKey;type:uuid"`
	TenantID       string    `gorm:"column:tenant_id;type:uuid;not null;index"`
	CustomerNumber string    `gorm:"column:customer_number;not null;index"`
	Name           string    `gorm:"column:name"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Customer) TableName() string { return "customers" }

type Vendor struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid"`
	TenantID     string    `gorm:"column:tenant_id;type:uuid;not null;index"`
	VendorNumber string    `gorm:"column:vendor_number;not null;index"`
	Name         string    `gorm:"column:name"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Vendor) TableName() string { return "vendors" }

type Item struct {
	ID            string          `gorm:"column:id;primaryKey;type:uuid"`
	TenantID      string          `gorm:"column:tenant_id;type:uuid;not null;index"`
	ItemNumber    string          `gorm:"column:item_number;not null;index"`
	Description   string          `gorm:"column:description"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(18,4)"`
	UnitOfMeasure string          `gorm:"column:unit_of_measure;type:varchar(4)"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Item) TableName() string { return "items" }

// SalesOrder is created from an inbound 850 and feeds outbound 810/856
type SalesOrder struct {
	ID               string           `gorm:"column:id;primaryKey;type:uuid"`
	TenantID         string           `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrderNumber      string           `gorm:"column:order_number;not null;index"`
	CustomerID       string           `gorm:"column:customer_id;type:uuid;not null"`
	CustomerPONumber string           `gorm:"column:customer_po_number;index"`
	OrderDate        *time.Time       `gorm:"column:order_date"`
	Status           string           `gorm:"column:status;type:varchar(20)"`
	Source           string           `gorm:"column:source;type:varchar(20)"`
	Subtotal         decimal.Decimal  `gorm:"column:subtotal;type:numeric(18,4)"`
	TaxAmount        decimal.Decimal  `gorm:"column:tax_amount;type:numeric(18,4)"`
	Total            decimal.Decimal  `gorm:"column:total;type:numeric(18,4)"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	Customer         Customer         `gorm:"foreignKey:CustomerID"`
	Lines            []SalesOrderLine `gorm:"foreignKey:SalesOrderID"`
}

func (SalesOrder) TableName() string { return "sales_orders" }

type SalesOrderLine struct {
	ID           string          `gorm:"column:id;primaryKey;type:uuid"`
	SalesOrderID string          `gorm:"column:sales_order_id;type:uuid;not null;index"`
	LineNumber   int             `gorm:"column:line_number"`
	ItemID       string          `gorm:"column:item_id;type:uuid;not null"`
	Description  string          `gorm:"column:description"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(18,4)"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(18,4)"`
	LineTotal    decimal.Decimal `gorm:"column:line_total;type:numeric(18,4)"`
	Item         Item            `gorm:"foreignKey:ItemID"`
}

func (SalesOrderLine) TableName() string { return "sales_order_lines" }

// PurchaseOrder is issued to vendors (outbound 850) and updated by inbound 856
type PurchaseOrder struct {
	ID        string              `gorm:"column:id;primaryKey;type:uuid"`
	TenantID  string              `gorm:"column:tenant_id;type:uuid;not null;index"`
	PONumber  string              `gorm:"column:po_number;not null;index"`
	VendorID  string              `gorm:"column:vendor_id;type:uuid;not null"`
	OrderDate *time.Time          `gorm:"column:order_date"`
	Status    string              `gorm:"column:status;type:varchar(20)"`
	Subtotal  decimal.Decimal     `gorm:"column:subtotal;type:numeric(18,4)"`
	TaxAmount decimal.Decimal     `gorm:"column:tax_amount;type:numeric(18,4)"`
	Total     decimal.Decimal     `gorm:"column:total;type:numeric(18,4)"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	Vendor    Vendor              `gorm:"foreignKey:VendorID"`
	Lines     []PurchaseOrderLine `gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

type PurchaseOrderLine struct {
	ID               string          `gorm:"column:id;primaryKey;type:uuid"`
	PurchaseOrderID  string          `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	LineNumber       int             `gorm:"column:line_number"`
	ItemID           string          `gorm:"column:item_id;type:uuid;not null"`
	Description      string          `gorm:"column:description"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(18,4)"`
	QuantityReceived decimal.Decimal `gorm:"column:quantity_received;type:numeric(18,4)"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(18,4)"`
	Item             Item            `gorm:"foreignKey:ItemID"`
}

func (PurchaseOrderLine) TableName() string { return "purchase_order_lines" }

// VendorBill is created from an inbound 810
type VendorBill struct {
	ID              string           `gorm:"column:id;primaryKey;type:uuid"`
	TenantID        string           `gorm:"column:tenant_id;type:uuid;not null;index"`
	InvoiceNumber   string           `gorm:"column:invoice_number;not null;index"`
	VendorID        string           `gorm:"column:vendor_id;type:uuid;not null"`
	PurchaseOrderID *string          `gorm:"column:purchase_order_id;type:uuid"`
	InvoiceDate     *time.Time       `gorm:"column:invoice_date"`
	Status          string           `gorm:"column:status;type:varchar(20)"`
	Subtotal        decimal.Decimal  `gorm:"column:subtotal;type:numeric(18,4)"`
	TaxAmount       decimal.Decimal  `gorm:"column:tax_amount;type:numeric(18,4)"`
	Total           decimal.Decimal  `gorm:"column:total;type:numeric(18,4)"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	Lines           []VendorBillLine `gorm:"foreignKey:VendorBillID"`
}

func (VendorBill) TableName() string { return "vendor_bills" }

type VendorBillLine struct {
	ID           string          `gorm:"column:id;primaryKey;type:uuid"`
	VendorBillID string          `gorm:"column:vendor_bill_id;type:uuid;not null;index"`
	LineNumber   int             `gorm:"column:line_number"`
	ItemID       string          `gorm:"column:item_id;type:uuid;not null"`
	Description  string          `gorm:"column:description"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(18,4)"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(18,4)"`
	LineTotal    decimal.Decimal `gorm:"column:line_total;type:numeric(18,4)"`
}

func (VendorBillLine) TableName() string { return "vendor_bill_lines" }

// InboundShipment records an advance ship notice (856) against a purchase order
type InboundShipment struct {
	ID              string                `gorm:"column:id;primaryKey;type:uuid"`
	TenantID        string                `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_inbound_shipment_number"`
	ShipmentNumber  string                `gorm:"column:shipment_number;not null;uniqueIndex:idx_inbound_shipment_number"`
	PurchaseOrderID string                `gorm:"column:purchase_order_id;type:uuid;not null;uniqueIndex:idx_inbound_shipment_number"`
	VendorID        string                `gorm:"column:vendor_id;type:uuid;not null"`
	ShipDate        *time.Time            `gorm:"column:ship_date"`
	Carrier         string                `gorm:"column:carrier"`
	TrackingNumber  string                `gorm:"column:tracking_number"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	Lines           []InboundShipmentLine `gorm:"foreignKey:ShipmentID"`
}

func (InboundShipment) TableName() string { return "inbound_shipments" }

type InboundShipmentLine struct {
	ID         string          `gorm:"column:id;primaryKey;type:uuid"`
	ShipmentID string          `gorm:"column:shipment_id;type:uuid;not null;index"`
	ItemID     string          `gorm:"column:item_id;type:uuid;not null"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(18,4)"`
}

func (InboundShipmentLine) TableName() string { return "inbound_shipment_lines" }

func newID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func (c *Customer) BeforeCreate(tx *gormlib.DB) error            { newID(&c.ID); return nil }
func (v *Vendor) BeforeCreate(tx *gormlib.DB) error              { newID(&v.ID); return nil }
func (i *Item) BeforeCreate(tx *gormlib.DB) error                { newID(&i.ID); return nil }
func (o *SalesOrder) BeforeCreate(tx *gormlib.DB) error          { newID(&o.ID); return nil }
func (l *SalesOrderLine) BeforeCreate(tx *gormlib.DB) error      { newID(&l.ID); return nil }
func (o *PurchaseOrder) BeforeCreate(tx *gormlib.DB) error       { newID(&o.ID); return nil }
func (l *PurchaseOrderLine) BeforeCreate(tx *gormlib.DB) error   { newID(&l.ID); return nil }
func (b *VendorBill) BeforeCreate(tx *gormlib.DB) error          { newID(&b.ID); return nil }
func (l *VendorBillLine) BeforeCreate(tx *gormlib.DB) error      { newID(&l.ID); return nil }
func (s *InboundShipment) BeforeCreate(tx *gormlib.DB) error     { newID(&s.ID); return nil }
func (l *InboundShipmentLine) BeforeCreate(tx *gormlib.DB) error { newID(&l.ID); return nil }

// AllModels lists every table the engine migrates
func AllModels() []interface{} {
	return []interface{}{
		&TradingPartner{}, &EdiSettings{}, &EdiTransaction{}, &TransactionCounter{}, &EdiFieldMapping{},
		&Customer{}, &Vendor{}, &Item{},
		&SalesOrder{}, &SalesOrderLine{},
		&PurchaseOrder{}, &PurchaseOrderLine{},
		&VendorBill{}, &VendorBillLine{},
		&InboundShipment{}, &InboundShipmentLine{},
	}
}
