package model

import "time"

type Customer struct {
	ID            int        `db:"id" json:"id"`
	CustomerName  string     `db:"customer_name" json:"customer_name"`
	MobileNo      string     `db:"mobile_no" json:"mobile_no"`
	CustomerType  string     `db:"customer_type" json:"customer_type"`
	CustomerGroup string     `db:"customer_group" json:"customer_group"`
	Territory     string     `db:"territory" json:"territory"`
	Gender        string     `db:"gender" json:"gender"`
	Religion      string     `db:"religion" json:"religion"`
	Profession    string     `db:"profession" json:"profession"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	SMSEnabled    bool       `db:"sms_enabled" json:"sms_enabled"`
}

// Attributes is the flat attribute set that rule conditions and message
// templates are resolved against.
func (c *Customer) Attributes() map[string]string {
	return map[string]string{
		"customer_name":  c.CustomerName,
		"mobile_no":      c.MobileNo,
		"customer_type":  c.CustomerType,
		"customer_group": c.CustomerGroup,
		"territory":      c.Territory,
		"gender":         c.Gender,
		"religion":       c.Religion,
		"profession":     c.Profession,
	}
}
