package repository

import (
	"database/sql"

	"github.com/unclebandit/smstrigger-backend/internal/model"
)

type SettingsRepositoryInterface interface {
	// Get returns the single settings row, or defaults when none exists.
	Get() (*model.Settings, error)
	Update(s *model.Settings) error
}

type SettingsRepository struct {
	DB *sql.DB
}

// DefaultSettings mirrors the values the seeder installs.
func DefaultSettings() *model.Settings {
	return &model.Settings{
		EnablePOSSMS:       false,
		POSMinAmount:       0,
		POSSMSTemplate:     "Dear {customer_name}, thank you for your purchase of {amount}. Invoice: {invoice_no}",
		EnablePOSOTP:       false,
		OTPExpiryMinutes:   5,
		OTPMaxAttempts:     3,
		OTPMessageTemplate: "Your verification code is {otp}. It expires in {minutes} minutes.",
		OTPOnDiscountOnly:  false,
	}
}

func (r *SettingsRepository) Get() (*model.Settings, error) {
	query := `
		SELECT id, enable_pos_sms, pos_min_amount, pos_sms_template, pos_customer_types,
			enable_pos_otp, otp_expiry_minutes, otp_max_attempts, otp_message_template,
			otp_on_discount_only
		FROM sms_settings
		ORDER BY id
		LIMIT 1
	`
	var s model.Settings
	err := r.DB.QueryRow(query).Scan(&s.ID, &s.EnablePOSSMS, &s.POSMinAmount, &s.POSSMSTemplate,
		&s.POSCustomerTypes, &s.EnablePOSOTP, &s.OTPExpiryMinutes, &s.OTPMaxAttempts,
		&s.OTPMessageTemplate, &s.OTPOnDiscountOnly)
	if err != nil {
		if err == sql.ErrNoRows {
			return DefaultSettings(), nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepository) Update(s *model.Settings) error {
	if s.ID == 0 {
		query := `
			INSERT INTO sms_settings (enable_pos_sms, pos_min_amount, pos_sms_template,
				pos_customer_types, enable_pos_otp, otp_expiry_minutes, otp_max_attempts,
				otp_message_template, otp_on_discount_only)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`
		return r.DB.QueryRow(query, s.EnablePOSSMS, s.POSMinAmount, s.POSSMSTemplate,
			s.POSCustomerTypes, s.EnablePOSOTP, s.OTPExpiryMinutes, s.OTPMaxAttempts,
			s.OTPMessageTemplate, s.OTPOnDiscountOnly).Scan(&s.ID)
	}

	query := `
		UPDATE sms_settings
		SET enable_pos_sms=$1, pos_min_amount=$2, pos_sms_template=$3, pos_customer_types=$4,
			enable_pos_otp=$5, otp_expiry_minutes=$6, otp_max_attempts=$7,
			otp_message_template=$8, otp_on_discount_only=$9
		WHERE id=$10
	`
	_, err := r.DB.Exec(query, s.EnablePOSSMS, s.POSMinAmount, s.POSSMSTemplate,
		s.POSCustomerTypes, s.EnablePOSOTP, s.OTPExpiryMinutes, s.OTPMaxAttempts,
		s.OTPMessageTemplate, s.OTPOnDiscountOnly, s.ID)
	return err
}

var _ SettingsRepositoryInterface = (*SettingsRepository)(nil)
