package types

// SequenceType identifies the counter a human-readable number is drawn from
type SequenceType string

const (
	SequenceTypeInvoice SequenceType = "invoice"
	SequenceTypeReceipt SequenceType = "receipt"
)

func (t SequenceType) String() string {
	return string(t)
}

// Prefix returns the display prefix used when formatting allocated numbers
func (t SequenceType) Prefix() string {
	switch t {
	case SequenceTypeInvoice:
		return "INV"
	case SequenceTypeReceipt:
		return "RCP"
	default:
		return "SEQ"
	}
}
