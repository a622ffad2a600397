package model

import (
	"sync"
	"time"
)

// OTPChallenge is the short-lived challenge cached per customer. At most
// one challenge is live per customer; issuing a new one replaces it.
type OTPChallenge struct {
	CustomerID int       `json:"customer_id"`
	Code       string    `json:"code"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Attempts   int       `json:"attempts"`
}

func (c *OTPChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// VerificationSession tracks which customers were OTP-verified during the
// current session. It is owned by the caller and never persisted.
type VerificationSession struct {
	mu       sync.Mutex
	verified map[int]struct{}
}

func NewVerificationSession() *VerificationSession {
	return &VerificationSession{verified: make(map[int]struct{})}
}

func (s *VerificationSession) MarkVerified(customerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[customerID] = struct{}{}
}

func (s *VerificationSession) IsVerified(customerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.verified[customerID]
	return ok
}
