package model

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignQueued    CampaignStatus = "queued"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

type FilterKind string

const (
	FilterCustomerGroup FilterKind = "customer_group"
	FilterTerritory     FilterKind = "territory"
	FilterGender        FilterKind = "gender"
	FilterReligion      FilterKind = "religion"
	FilterProfession    FilterKind = "profession"
	FilterCustom        FilterKind = "custom"
)

// FilterSpec selects the recipients of a campaign. Custom filters carry a
// JSON conditions object in Custom instead of a single Value.
type FilterSpec struct {
	Kind   FilterKind `json:"kind"`
	Value  string     `json:"value,omitempty"`
	Custom string     `json:"custom,omitempty"`
}

type Campaign struct {
	ID              int            `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	FilterBy        FilterKind     `db:"filter_by" json:"filter_by"`
	FilterValue     string         `db:"filter_value" json:"filter_value"`
	CustomFilter    string         `db:"custom_filter" json:"custom_filter,omitempty"`
	Message         string         `db:"message" json:"message"`
	Status          CampaignStatus `db:"status" json:"status"`
	TotalRecipients int            `db:"total_recipients" json:"total_recipients"`
	SuccessCount    int            `db:"success_count" json:"success_count"`
	FailedCount     int            `db:"failed_count" json:"failed_count"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// FilterSpec rebuilds the filter the campaign was created with.
func (c *Campaign) FilterSpec() FilterSpec {
	return FilterSpec{Kind: c.FilterBy, Value: c.FilterValue, Custom: c.CustomFilter}
}
