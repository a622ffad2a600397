package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/smstrigger-backend/internal/cache"
	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/gateway"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

const otpCodeLength = 6

// OTPService gates sensitive POS actions behind a one-time code. One
// challenge is live per customer at a time; issuing a new one replaces
// the old. A verified customer is cached on the caller's session so a
// second guarded action in the same session is not re-prompted.
type OTPService struct {
	SettingsRepo repository.SettingsRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
	Cache        cache.OTPCache
	Sender       gateway.Sender

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CheckRequirement decides whether the transaction needs OTP
// verification, per the configured customer-type and discount policy.
func (s *OTPService) CheckRequirement(customerID int, grandTotal, discountAmount float64) (bool, error) {
	settings, err := s.SettingsRepo.Get()
	if err != nil {
		return false, err
	}
	if !settings.EnablePOSOTP {
		return false, nil
	}

	customer, err := s.CustomerRepo.GetByID(customerID)
	if err != nil {
		return false, err
	}

	required := false
	if settings.POSCustomerTypes != "" {
		for _, allowed := range strings.Split(settings.POSCustomerTypes, ",") {
			if customer.CustomerType == strings.TrimSpace(allowed) {
				required = true
				break
			}
		}
	} else if customer.CustomerGroup == "Walking Customer" || customer.CustomerName == "Walking Customer" {
		required = true
	}

	if !required {
		return false, nil
	}

	if settings.OTPOnDiscountOnly && discountAmount <= 0 {
		return false, nil
	}

	return true, nil
}

// SendOTP issues a fresh challenge and dispatches the code to the
// customer's registered mobile number. Any prior live challenge for the
// customer is replaced.
func (s *OTPService) SendOTP(ctx context.Context, customerID int) (int, error) {
	settings, err := s.SettingsRepo.Get()
	if err != nil {
		return 0, err
	}
	if !settings.EnablePOSOTP {
		return 0, fmt.Errorf("OTP verification is disabled")
	}

	customer, err := s.CustomerRepo.GetByID(customerID)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(customer.MobileNo) == "" {
		return 0, fmt.Errorf("customer %d has no mobile number", customerID)
	}

	code, err := generateOTPCode()
	if err != nil {
		return 0, err
	}

	expiryMinutes := settings.OTPExpiryMinutes
	if expiryMinutes <= 0 {
		expiryMinutes = 5
	}
	ttl := time.Duration(expiryMinutes) * time.Minute
	issuedAt := s.now()

	challenge := &model.OTPChallenge{
		CustomerID: customerID,
		Code:       code,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(ttl),
	}
	if err := s.Cache.StoreChallenge(ctx, challenge, ttl); err != nil {
		return 0, err
	}

	message := RenderTemplate(settings.OTPMessageTemplate, map[string]string{
		"otp":     code,
		"minutes": strconv.Itoa(expiryMinutes),
	})
	if err := s.Sender.Send(ctx, customer.MobileNo, message); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{"customer_id": customerID, "expiry_minutes": expiryMinutes}).Info("otp sent")
	return expiryMinutes, nil
}

// ValidateOTP checks the supplied code against the live challenge. The
// code is single use: a match consumes the challenge and marks the
// customer verified on the session.
func (s *OTPService) ValidateOTP(ctx context.Context, session *model.VerificationSession, customerID int, code string) error {
	settings, err := s.SettingsRepo.Get()
	if err != nil {
		return err
	}
	maxAttempts := settings.OTPMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	challenge, err := s.Cache.GetChallenge(ctx, customerID)
	if err != nil {
		return err
	}
	if challenge == nil {
		return appErrors.ErrChallengeExpired
	}
	if challenge.Expired(s.now()) {
		_ = s.Cache.DeleteChallenge(ctx, customerID)
		return appErrors.ErrChallengeExpired
	}
	if challenge.Attempts >= maxAttempts {
		return appErrors.ErrTooManyAttempts
	}

	if challenge.Code != code {
		challenge.Attempts++
		if err := s.Cache.UpdateChallenge(ctx, challenge); err != nil {
			return err
		}
		return appErrors.ErrInvalidCode
	}

	if err := s.Cache.DeleteChallenge(ctx, customerID); err != nil {
		return err
	}
	if session != nil {
		session.MarkVerified(customerID)
	}
	return nil
}

// Guard resolves the interception contract for a guarded action: allow
// when no OTP is required or the customer was already verified this
// session; deny otherwise, in which case the action must not proceed.
func (s *OTPService) Guard(ctx context.Context, session *model.VerificationSession, customerID int, grandTotal, discountAmount float64) (bool, error) {
	required, err := s.CheckRequirement(customerID, grandTotal, discountAmount)
	if err != nil {
		return false, err
	}
	if !required {
		return true, nil
	}
	if session != nil && session.IsVerified(customerID) {
		return true, nil
	}
	return false, nil
}

func generateOTPCode() (string, error) {
	buf := make([]byte, otpCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, otpCodeLength)
	for i, b := range buf {
		code[i] = '0' + b%10
	}
	return string(code), nil
}
