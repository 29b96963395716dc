package types

import "time"

// ServiceType identifies which Grab service issued a receipt.
type ServiceType string

const (
	ServiceFood      ServiceType = "GrabFood"
	ServiceTransport ServiceType = "GrabTransport"
	ServiceTip       ServiceType = "GrabTip"
	ServiceUnknown   ServiceType = "Unknown"
)

// Message represents a receipt email fetched from the mailbox.
type Message struct {
	UID       uint32    `json:"uid"`
	MessageID string    `json:"message_id"`
	Subject   string    `json:"subject"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Date      time.Time `json:"date"`
	// Body is the decoded message body: the HTML alternative when one
	// exists, the plain-text part otherwise.
	Body string `json:"body,omitempty"`
}

// Record is the structured result extracted from one receipt email.
type Record struct {
	UID         uint32      `json:"uid"`
	Date        time.Time   `json:"date"`
	Type        ServiceType `json:"type"`
	OrderID     string      `json:"order_id,omitempty"`
	Currency    string      `json:"currency"`
	TotalAmount float64     `json:"total_amount"`
	// Metadata holds the type-specific fields. The key set is fixed per
	// service type; a key whose pattern found nothing maps to nil.
	Metadata map[string]any `json:"metadata,omitempty"`
}
