package constants

type (
	Direction           string
	DocumentType        string
	DocumentFormat      string
	TransactionStatus   string
	CommunicationMethod string
)

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

const (
	DocumentType850 DocumentType = "850"
	DocumentType810 DocumentType = "810"
	DocumentType856 DocumentType = "856"
	DocumentType997 DocumentType = "997"
)

// DefaultInboundDocumentType is assigned to files picked up by the SFTP poller
// before their content has been parsed.
const DefaultInboundDocumentType = DocumentType850

const (
	FormatX12  DocumentFormat = "x12"
	FormatCSV  DocumentFormat = "csv"
	FormatXML  DocumentFormat = "xml"
	FormatJSON DocumentFormat = "json"
)

const (
	StatusPending      TransactionStatus = "pending"
	StatusCompleted    TransactionStatus = "completed"
	StatusFailed       TransactionStatus = "failed"
	StatusAcknowledged TransactionStatus = "acknowledged"
)

const (
	CommunicationAS2  CommunicationMethod = "as2"
	CommunicationSFTP CommunicationMethod = "sftp"
)

// ERPTaxRate is applied to line subtotals by the ERP bridge.
const ERPTaxRate = "0.08"

// IsValid reports whether the document type is one the engine handles
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentType850, DocumentType810, DocumentType856, DocumentType997:
		return true
	}
	return false
}

func (f DocumentFormat) IsValid() bool {
	switch f {
	case FormatX12, FormatCSV, FormatXML, FormatJSON:
		return true
	}
	return false
}

// CanTransition enforces the one-directional status lifecycle of a transaction.
func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusCompleted || to == StatusFailed || to == StatusAcknowledged
	case StatusCompleted:
		return to == StatusAcknowledged || to == StatusFailed
	}
	return false
}

// SourceStatuses lists every status that may move to the given target.
func SourceStatuses(to TransactionStatus) []TransactionStatus {
	var from []TransactionStatus
	for _, s := range []TransactionStatus{StatusPending, StatusCompleted, StatusFailed, StatusAcknowledged} {
		if s.CanTransition(to) {
			from = append(from, s)
		}
	}
	return from
}
