package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/model"
)

// filterColumns is the whitelist of customer columns that rule conditions
// and campaign filters may query on.
var filterColumns = map[string]bool{
	"customer_name":  true,
	"mobile_no":      true,
	"customer_type":  true,
	"customer_group": true,
	"territory":      true,
	"gender":         true,
	"religion":       true,
	"profession":     true,
}

type CustomerRepositoryInterface interface {
	GetByID(id int) (*model.Customer, error)
	// ListByAttributes returns customers with a mobile number matching
	// every attribute exactly, ordered by id. Unknown attribute names
	// are rejected.
	ListByAttributes(attrs map[string]string) ([]model.Customer, error)
	// ListBirthdays returns customers whose birthday falls on the given
	// MM-DD day of year.
	ListBirthdays(monthDay string) ([]model.Customer, error)
	// ListInactiveSince returns customers with no invoice posted on or
	// after the cutoff date.
	ListInactiveSince(cutoff time.Time) ([]model.Customer, error)
	// ListRepurchaseCandidates returns customers who bought the item
	// since the cutoff date.
	ListRepurchaseCandidates(itemCode string, since time.Time) ([]model.Customer, error)
	Create(c *model.Customer) error
}

type CustomerRepository struct {
	DB *sql.DB
}

const customerColumns = `id, customer_name, mobile_no, customer_type, customer_group,
	territory, gender, religion, profession, date_of_birth, sms_enabled`

const customerColumnsC = `c.id, c.customer_name, c.mobile_no, c.customer_type, c.customer_group,
	c.territory, c.gender, c.religion, c.profession, c.date_of_birth, c.sms_enabled`

func scanCustomer(row interface{ Scan(...interface{}) error }) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.CustomerName, &c.MobileNo, &c.CustomerType, &c.CustomerGroup,
		&c.Territory, &c.Gender, &c.Religion, &c.Profession, &c.DateOfBirth, &c.SMSEnabled)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) GetByID(id int) (*model.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id=$1`, customerColumns)
	c, err := scanCustomer(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCustomerNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CustomerRepository) ListByAttributes(attrs map[string]string) ([]model.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE mobile_no != ''`, customerColumns)
	args := []interface{}{}
	argPos := 1

	for key, value := range attrs {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unknown customer attribute: %s", key)
		}
		query += fmt.Sprintf(" AND %s=$%d", key, argPos)
		args = append(args, value)
		argPos++
	}

	query += " ORDER BY id"
	return r.queryCustomers(query, args...)
}

func (r *CustomerRepository) ListBirthdays(monthDay string) ([]model.Customer, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM customers
		WHERE mobile_no != ''
		AND date_of_birth IS NOT NULL
		AND to_char(date_of_birth, 'MM-DD') = $1
		ORDER BY id
	`, customerColumns)
	return r.queryCustomers(query, monthDay)
}

func (r *CustomerRepository) ListInactiveSince(cutoff time.Time) ([]model.Customer, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM customers c
		WHERE c.mobile_no != ''
		AND NOT EXISTS (
			SELECT 1 FROM invoices i
			WHERE i.customer_id = c.id AND i.posting_date >= $1
		)
		ORDER BY c.id
	`, customerColumnsC)
	return r.queryCustomers(query, cutoff)
}

func (r *CustomerRepository) ListRepurchaseCandidates(itemCode string, since time.Time) ([]model.Customer, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM customers c
		JOIN invoices i ON i.customer_id = c.id
		JOIN invoice_items ii ON ii.invoice_id = i.id
		WHERE c.mobile_no != ''
		AND ii.item_code = $1
		AND i.posting_date >= $2
		ORDER BY c.id
	`, customerColumnsC)
	return r.queryCustomers(query, itemCode, since)
}

func (r *CustomerRepository) Create(c *model.Customer) error {
	query := `
		INSERT INTO customers (customer_name, mobile_no, customer_type, customer_group,
			territory, gender, religion, profession, date_of_birth, sms_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.DB.QueryRow(query, c.CustomerName, c.MobileNo, c.CustomerType, c.CustomerGroup,
		c.Territory, c.Gender, c.Religion, c.Profession, c.DateOfBirth, c.SMSEnabled).Scan(&c.ID)
}

func (r *CustomerRepository) queryCustomers(query string, args ...interface{}) ([]model.Customer, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
