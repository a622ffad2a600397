package model

import "time"

type ScheduledSMSStatus string

const (
	ScheduledDraft  ScheduledSMSStatus = "draft"
	ScheduledSent   ScheduledSMSStatus = "sent"
	ScheduledFailed ScheduledSMSStatus = "failed"
)

// ScheduledSMS is a single message created by the trigger engine or the
// ad-hoc API, flushed by the scheduler once its scheduled time is due.
type ScheduledSMS struct {
	ID            int                `db:"id" json:"id"`
	CustomerID    int                `db:"customer_id" json:"customer_id"`
	MobileNo      string             `db:"mobile_no" json:"mobile_no"`
	Message       string             `db:"message" json:"message"`
	TriggerType   string             `db:"trigger_type" json:"trigger_type"`
	RuleID        *int               `db:"rule_id" json:"rule_id,omitempty"`
	ReferenceType string             `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   string             `db:"reference_id" json:"reference_id,omitempty"`
	Status        ScheduledSMSStatus `db:"status" json:"status"`
	ErrorMessage  string             `db:"error_message" json:"error_message,omitempty"`
	ScheduledAt   time.Time          `db:"scheduled_at" json:"scheduled_at"`
	SentAt        *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
}
