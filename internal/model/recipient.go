package model

import "time"

type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
)

// Recipient is one addressable target of a campaign. Rows are owned by
// their parent campaign and ordered by id, which is the resolve order.
type Recipient struct {
	ID           int             `db:"id" json:"id"`
	CampaignID   int             `db:"campaign_id" json:"campaign_id"`
	CustomerID   int             `db:"customer_id" json:"customer_id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	MobileNo     string          `db:"mobile_no" json:"mobile_no"`
	Status       RecipientStatus `db:"status" json:"status"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
	SentAt       *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
}

// SendLog is the per-attempt audit row written for every campaign send.
type SendLog struct {
	ID           int             `db:"id" json:"id"`
	CampaignID   int             `db:"campaign_id" json:"campaign_id"`
	CustomerID   int             `db:"customer_id" json:"customer_id"`
	MobileNo     string          `db:"mobile_no" json:"mobile_no"`
	Message      string          `db:"message" json:"message"`
	Status       RecipientStatus `db:"status" json:"status"`
	ErrorMessage string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
