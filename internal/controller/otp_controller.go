package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/service"
)

// OTPController exposes the POS OTP gate. The verification session is
// process wide: POS terminals share one API session, so a customer
// verified once is not re-prompted until the server restarts.
type OTPController struct {
	OTPService *service.OTPService
	Session    *model.VerificationSession
}

func (c *OTPController) CheckOTPRequired(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID     int     `json:"customer_id"`
		GrandTotal     float64 `json:"grand_total"`
		DiscountAmount float64 `json:"discount_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	required, err := c.OTPService.CheckRequirement(body.CustomerID, body.GrandTotal, body.DiscountAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"otp_required":     required,
		"already_verified": c.Session.IsVerified(body.CustomerID),
	})
}

func (c *OTPController) SendOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	expiryMinutes, err := c.OTPService.SendOTP(r.Context(), body.CustomerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"sent":           true,
		"expiry_minutes": expiryMinutes,
	})
}

func (c *OTPController) ValidateOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int    `json:"customer_id"`
		OTP        string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	err := c.OTPService.ValidateOTP(r.Context(), c.Session, body.CustomerID, body.OTP)
	switch {
	case err == nil:
		json.NewEncoder(w).Encode(map[string]interface{}{"verified": true})
	case errors.Is(err, appErrors.ErrInvalidCode),
		errors.Is(err, appErrors.ErrChallengeExpired),
		errors.Is(err, appErrors.ErrTooManyAttempts):
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"verified": false,
			"error":    err.Error(),
		})
	default:
		writeServiceError(w, err)
	}
}
