package dtos

// Canonical field names used by the X12 extractors/generators and the ERP bridge.
// Partner-specific names are translated to these by the field mapper.
const (
	FieldPurposeCode    = "purposeCode"
	FieldOrderType      = "orderType"
	FieldPONumber       = "poNumber"
	FieldPODate         = "poDate"
	FieldDeliveryDate   = "requestedDeliveryDate"
	FieldCustomerNumber = "customerNumber"
	FieldCustomerName   = "customerName"
	FieldVendorNumber   = "vendorNumber"
	FieldVendorName     = "vendorName"
	FieldShipToNumber   = "shipToNumber"
	FieldShipToName     = "shipToName"

	FieldInvoiceNumber = "invoiceNumber"
	FieldInvoiceDate   = "invoiceDate"
	FieldTotalAmount   = "totalAmount"

	FieldShipmentNumber = "shipmentNumber"
	FieldShipDate       = "shipDate"
	FieldShipTime       = "shipTime"
	FieldCarrier        = "carrier"
	FieldTrackingNumber = "trackingNumber"
	FieldBillOfLading   = "billOfLading"

	FieldLineNumber       = "lineNumber"
	FieldItemNumber       = "itemNumber"
	FieldItemQualifier    = "itemQualifier"
	FieldVendorPartNumber = "vendorPartNumber"
	FieldBuyerPartNumber  = "buyerPartNumber"
	FieldUPC              = "upc"
	FieldDescription      = "description"
	FieldUnitOfMeasure    = "unitOfMeasure"
	FieldUnitPrice        = "unitPrice"
	FieldQuantityOrdered  = "quantityOrdered"
	FieldQuantityInvoiced = "quantityInvoiced"
	FieldQuantityShipped  = "quantityShipped"

	// 997 functional acknowledgment
	FieldRecordType               = "recordType"
	FieldFunctionalIDCode         = "functionalIdCode"
	FieldGroupControlNumber       = "groupControlNumber"
	FieldTransactionSetID         = "transactionSetId"
	FieldTransactionControlNumber = "transactionControlNumber"
	FieldAcknowledgmentCode       = "acknowledgmentCode"
	FieldErrorCode                = "errorCode"
	FieldSetsIncluded             = "transactionSetsIncluded"
	FieldSetsReceived             = "transactionSetsReceived"
	FieldSetsAccepted             = "transactionSetsAccepted"
)

const (
	RecordTypeGroup       = "group"
	RecordTypeTransaction = "transaction"
)
