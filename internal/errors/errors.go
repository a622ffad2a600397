package appErrors

import (
	"errors"
	"fmt"
)

// OTP failures surfaced to the end user. The guarded action must abort on
// any of these.
var (
	ErrInvalidCode      = errors.New("invalid OTP code")
	ErrChallengeExpired = errors.New("OTP expired or not found, request a new one")
	ErrTooManyAttempts  = errors.New("too many OTP attempts, request a new one")
)

// ErrMalformedPredicate means a rule's conditions text does not parse as a
// flat JSON object. The rule is treated as non-matching until fixed.
type ErrMalformedPredicate struct {
	Detail string
}

func (e *ErrMalformedPredicate) Error() string {
	return fmt.Sprintf("malformed conditions: %s", e.Detail)
}

func NewMalformedPredicate(detail string) error {
	return &ErrMalformedPredicate{Detail: detail}
}

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrRuleNotFound struct {
	RuleID int
}

func (e *ErrRuleNotFound) Error() string {
	return fmt.Sprintf("trigger rule with ID %d not found", e.RuleID)
}

func NewRuleNotFound(id int) error {
	return &ErrRuleNotFound{RuleID: id}
}

type ErrCustomerNotFound struct {
	CustomerID int
}

func (e *ErrCustomerNotFound) Error() string {
	return fmt.Sprintf("customer with ID %d not found", e.CustomerID)
}

func NewCustomerNotFound(id int) error {
	return &ErrCustomerNotFound{CustomerID: id}
}

// ErrSendInProgress rejects a second concurrent send of the same campaign.
type ErrSendInProgress struct {
	CampaignID int
}

func (e *ErrSendInProgress) Error() string {
	return fmt.Sprintf("campaign %d is already being sent", e.CampaignID)
}

func NewSendInProgress(id int) error {
	return &ErrSendInProgress{CampaignID: id}
}

// ErrInvalidStatus rejects an operation the campaign's status does not allow.
type ErrInvalidStatus struct {
	CampaignID int
	Status     string
	Operation  string
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("cannot %s campaign %d in status %s", e.Operation, e.CampaignID, e.Status)
}

// ErrRecipientResolution wraps a directory failure during recipient
// resolution. The campaign stays in draft.
type ErrRecipientResolution struct {
	Err error
}

func (e *ErrRecipientResolution) Error() string {
	return fmt.Sprintf("recipient resolution failed: %v", e.Err)
}

func (e *ErrRecipientResolution) Unwrap() error { return e.Err }

func NewRecipientResolution(err error) error {
	return &ErrRecipientResolution{Err: err}
}
