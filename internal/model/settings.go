package model

// Settings is the single-row configuration for POS SMS and OTP behaviour.
type Settings struct {
	ID                 int     `db:"id" json:"id"`
	EnablePOSSMS       bool    `db:"enable_pos_sms" json:"enable_pos_sms"`
	POSMinAmount       float64 `db:"pos_min_amount" json:"pos_min_amount"`
	POSSMSTemplate     string  `db:"pos_sms_template" json:"pos_sms_template"`
	POSCustomerTypes   string  `db:"pos_customer_types" json:"pos_customer_types"`
	EnablePOSOTP       bool    `db:"enable_pos_otp" json:"enable_pos_otp"`
	OTPExpiryMinutes   int     `db:"otp_expiry_minutes" json:"otp_expiry_minutes"`
	OTPMaxAttempts     int     `db:"otp_max_attempts" json:"otp_max_attempts"`
	OTPMessageTemplate string  `db:"otp_message_template" json:"otp_message_template"`
	OTPOnDiscountOnly  bool    `db:"otp_on_discount_only" json:"otp_on_discount_only"`
}
