package model

import "time"

type TriggerType string

const (
	TriggerInvoiceDue    TriggerType = "invoice_due"
	TriggerBirthday      TriggerType = "birthday"
	TriggerInactive      TriggerType = "inactive_customer"
	TriggerRepurchase    TriggerType = "repurchase_promotion"
	TriggerCustomerType  TriggerType = "customer_type"
	TriggerCustomerGroup TriggerType = "customer_group"
)

type Frequency string

const (
	FrequencyOneTime   Frequency = "one_time"
	FrequencyRecurring Frequency = "recurring"
)

type TriggerRule struct {
	ID              int         `db:"id" json:"id"`
	RuleName        string      `db:"rule_name" json:"rule_name"`
	TriggerType     TriggerType `db:"trigger_type" json:"trigger_type"`
	Conditions      string      `db:"conditions" json:"conditions"`
	MessageTemplate string      `db:"message_template" json:"message_template"`
	Frequency       Frequency   `db:"frequency" json:"frequency"`
	DaysInterval    int         `db:"days_interval" json:"days_interval"`
	IsActive        bool        `db:"is_active" json:"is_active"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time  `db:"updated_at" json:"updated_at,omitempty"`
}

// RuleFiring records that a rule fired for a customer. One-time rules
// never fire twice for the same customer; recurring rules use the latest
// firing to enforce their interval window.
type RuleFiring struct {
	ID         int       `db:"id" json:"id"`
	RuleID     int       `db:"rule_id" json:"rule_id"`
	CustomerID int       `db:"customer_id" json:"customer_id"`
	FiredAt    time.Time `db:"fired_at" json:"fired_at"`
}

// RuleValidation is the non-raising validation report for a rule.
type RuleValidation struct {
	Valid                  bool     `json:"valid"`
	ConditionError         string   `json:"condition_error,omitempty"`
	UnresolvedPlaceholders []string `json:"unresolved_placeholders,omitempty"`
}
