package model

// Flag names one of the six independent match conditions.
type Flag string

// Match flags, in matched-table column order.
const (
	FlagHandlerName   Flag = "handler_name_match"
	FlagOwnerName     Flag = "owner_name_match"
	FlagOperatorName  Flag = "operator_name_match"
	FlagContactEmail  Flag = "contact_email_match"
	FlagOwnerEmail    Flag = "owner_email_match"
	FlagOperatorEmail Flag = "operator_email_match"
)

// Flags lists every match flag in column order.
var Flags = []Flag{
	FlagHandlerName,
	FlagOwnerName,
	FlagOperatorName,
	FlagContactEmail,
	FlagOwnerEmail,
	FlagOperatorEmail,
}

// FlagCounts holds match totals: all matched rows plus the number of rows
// on which each flag is set. A row can count toward several flags.
type FlagCounts struct {
	Total         int64 `csv:"total_matches" json:"total_matches"`
	HandlerName   int64 `csv:"handler_name_match" json:"handler_name_match"`
	OwnerName     int64 `csv:"owner_name_match" json:"owner_name_match"`
	OperatorName  int64 `csv:"operator_name_match" json:"operator_name_match"`
	ContactEmail  int64 `csv:"contact_email_match" json:"contact_email_match"`
	OwnerEmail    int64 `csv:"owner_email_match" json:"owner_email_match"`
	OperatorEmail int64 `csv:"operator_email_match" json:"operator_email_match"`
}

// Add accumulates o into c.
func (c *FlagCounts) Add(o FlagCounts) {
	c.Total += o.Total
	c.HandlerName += o.HandlerName
	c.OwnerName += o.OwnerName
	c.OperatorName += o.OperatorName
	c.ContactEmail += o.ContactEmail
	c.OwnerEmail += o.OwnerEmail
	c.OperatorEmail += o.OperatorEmail
}

// ByFlag returns the count recorded for f.
func (c FlagCounts) ByFlag(f Flag) int64 {
	switch f {
	case FlagHandlerName:
		return c.HandlerName
	case FlagOwnerName:
		return c.OwnerName
	case FlagOperatorName:
		return c.OperatorName
	case FlagContactEmail:
		return c.ContactEmail
	case FlagOwnerEmail:
		return c.OwnerEmail
	case FlagOperatorEmail:
		return c.OperatorEmail
	default:
		return 0
	}
}
