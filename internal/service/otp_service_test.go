package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

func newOTPFixture(sender *fakeSender) (*OTPService, *memOTPCache, *memSettingsRepo) {
	settings := repository.DefaultSettings()
	settings.EnablePOSOTP = true
	settingsRepo := &memSettingsRepo{settings: settings}

	customers := &memCustomerRepo{customers: []model.Customer{
		{ID: 1, CustomerName: "Walking Customer", MobileNo: "+254712345678", CustomerGroup: "Walking Customer"},
		{ID: 2, CustomerName: "Otieno Traders", MobileNo: "+254722000111", CustomerType: "Company", CustomerGroup: "Wholesale"},
		{ID: 3, CustomerName: "No Phone", MobileNo: "", CustomerGroup: "Walking Customer"},
	}}

	cache := newMemOTPCache()
	svc := &OTPService{
		SettingsRepo: settingsRepo,
		CustomerRepo: customers,
		Cache:        cache,
		Sender:       sender,
	}
	return svc, cache, settingsRepo
}

// extractCode pulls the 6-digit code out of the last sent message.
func extractCode(t *testing.T, sender *fakeSender) string {
	t.Helper()
	require.NotEmpty(t, sender.sent)
	parts := strings.SplitN(sender.sent[len(sender.sent)-1], "|", 2)
	require.Len(t, parts, 2)
	m := regexp.MustCompile(`\d{6}`).FindString(parts[1])
	require.NotEmpty(t, m)
	return m
}

func TestCheckRequirement(t *testing.T) {
	svc, _, settingsRepo := newOTPFixture(&fakeSender{})

	t.Run("walking customer requires OTP", func(t *testing.T) {
		required, err := svc.CheckRequirement(1, 1000, 0)
		require.NoError(t, err)
		assert.True(t, required)
	})

	t.Run("other customers do not", func(t *testing.T) {
		required, err := svc.CheckRequirement(2, 1000, 0)
		require.NoError(t, err)
		assert.False(t, required)
	})

	t.Run("configured customer types override the default", func(t *testing.T) {
		s, _ := settingsRepo.Get()
		s.POSCustomerTypes = "Company"
		require.NoError(t, settingsRepo.Update(s))
		defer func() {
			s.POSCustomerTypes = ""
			settingsRepo.Update(s)
		}()

		required, err := svc.CheckRequirement(2, 1000, 0)
		require.NoError(t, err)
		assert.True(t, required)

		required, err = svc.CheckRequirement(1, 1000, 0)
		require.NoError(t, err)
		assert.False(t, required, "walking customer fallback is off when types are configured")
	})

	t.Run("discount-only mode skips undiscounted sales", func(t *testing.T) {
		s, _ := settingsRepo.Get()
		s.OTPOnDiscountOnly = true
		require.NoError(t, settingsRepo.Update(s))
		defer func() {
			s.OTPOnDiscountOnly = false
			settingsRepo.Update(s)
		}()

		required, err := svc.CheckRequirement(1, 1000, 0)
		require.NoError(t, err)
		assert.False(t, required)

		required, err = svc.CheckRequirement(1, 1000, 50)
		require.NoError(t, err)
		assert.True(t, required)
	})

	t.Run("disabled gate never requires OTP", func(t *testing.T) {
		s, _ := settingsRepo.Get()
		s.EnablePOSOTP = false
		require.NoError(t, settingsRepo.Update(s))
		defer func() {
			s.EnablePOSOTP = true
			settingsRepo.Update(s)
		}()

		required, err := svc.CheckRequirement(1, 1000, 0)
		require.NoError(t, err)
		assert.False(t, required)
	})
}

func TestSendAndValidateOTP(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newOTPFixture(sender)
	ctx := context.Background()
	session := model.NewVerificationSession()

	expiry, err := svc.SendOTP(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, expiry)

	code := extractCode(t, sender)
	require.NoError(t, svc.ValidateOTP(ctx, session, 1, code))
	assert.True(t, session.IsVerified(1))

	// The code is single use.
	err = svc.ValidateOTP(ctx, session, 1, code)
	assert.ErrorIs(t, err, appErrors.ErrChallengeExpired)
}

func TestValidateOTPWrongCodeCountsAttempts(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newOTPFixture(sender)
	ctx := context.Background()
	session := model.NewVerificationSession()

	_, err := svc.SendOTP(ctx, 1)
	require.NoError(t, err)
	code := extractCode(t, sender)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 3; i++ {
		err := svc.ValidateOTP(ctx, session, 1, wrong)
		assert.ErrorIs(t, err, appErrors.ErrInvalidCode)
	}

	// Attempts exhausted: even the correct code is rejected now.
	err = svc.ValidateOTP(ctx, session, 1, code)
	assert.ErrorIs(t, err, appErrors.ErrTooManyAttempts)
	assert.False(t, session.IsVerified(1))
}

func TestValidateOTPExpiry(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newOTPFixture(sender)
	ctx := context.Background()
	session := model.NewVerificationSession()

	issued := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return issued }

	_, err := svc.SendOTP(ctx, 1)
	require.NoError(t, err)
	code := extractCode(t, sender)

	// Five minutes later the challenge is gone.
	svc.Now = func() time.Time { return issued.Add(5 * time.Minute) }
	err = svc.ValidateOTP(ctx, session, 1, code)
	assert.ErrorIs(t, err, appErrors.ErrChallengeExpired)
}

func TestSendOTPReplacesLiveChallenge(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newOTPFixture(sender)
	ctx := context.Background()
	session := model.NewVerificationSession()

	_, err := svc.SendOTP(ctx, 1)
	require.NoError(t, err)
	first := extractCode(t, sender)

	_, err = svc.SendOTP(ctx, 1)
	require.NoError(t, err)
	second := extractCode(t, sender)

	if first != second {
		err = svc.ValidateOTP(ctx, session, 1, first)
		assert.ErrorIs(t, err, appErrors.ErrInvalidCode, "old code is dead once a new one is issued")
	}
	require.NoError(t, svc.ValidateOTP(ctx, session, 1, second))
}

func TestSendOTPRequiresMobileNumber(t *testing.T) {
	svc, _, _ := newOTPFixture(&fakeSender{})

	_, err := svc.SendOTP(context.Background(), 3)
	assert.ErrorContains(t, err, "no mobile number")
}

func TestGuard(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newOTPFixture(sender)
	ctx := context.Background()
	session := model.NewVerificationSession()

	t.Run("not required allows", func(t *testing.T) {
		allowed, err := svc.Guard(ctx, session, 2, 1000, 0)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("required and unverified denies", func(t *testing.T) {
		allowed, err := svc.Guard(ctx, session, 1, 1000, 0)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("verified in session allows without a new prompt", func(t *testing.T) {
		_, err := svc.SendOTP(ctx, 1)
		require.NoError(t, err)
		require.NoError(t, svc.ValidateOTP(ctx, session, 1, extractCode(t, sender)))

		allowed, err := svc.Guard(ctx, session, 1, 1000, 0)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestOTPMessageUsesTemplate(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newOTPFixture(sender)

	_, err := svc.SendOTP(context.Background(), 1)
	require.NoError(t, err)

	message := sender.sent[0]
	assert.True(t, strings.Contains(message, "expires in 5 minutes"), "message: %s", message)
}
