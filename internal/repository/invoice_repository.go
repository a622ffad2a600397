package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/smstrigger-backend/internal/model"
)

type InvoiceRepositoryInterface interface {
	// ListOverdue returns submitted invoices with an outstanding balance
	// whose due date is on or before the given date, joined with the
	// customer's name and mobile number.
	ListOverdue(dueBefore time.Time) ([]model.OverdueInvoice, error)
	Create(inv *model.Invoice) error
	AddItem(item *model.InvoiceItem) error
}

type InvoiceRepository struct {
	DB *sql.DB
}

func (r *InvoiceRepository) ListOverdue(dueBefore time.Time) ([]model.OverdueInvoice, error) {
	query := `
		SELECT i.id, i.customer_id, i.grand_total, i.outstanding_amount, i.due_date,
			i.posting_date, c.customer_name, c.mobile_no
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.outstanding_amount > 0
		AND i.due_date <= $1
		AND c.mobile_no != ''
		ORDER BY i.id
	`
	rows, err := r.DB.Query(query, dueBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []model.OverdueInvoice{}
	for rows.Next() {
		var inv model.OverdueInvoice
		if err := rows.Scan(&inv.ID, &inv.CustomerID, &inv.GrandTotal, &inv.OutstandingAmount,
			&inv.DueDate, &inv.PostingDate, &inv.CustomerName, &inv.MobileNo); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) Create(inv *model.Invoice) error {
	query := `
		INSERT INTO invoices (customer_id, grand_total, outstanding_amount, due_date, posting_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRow(query, inv.CustomerID, inv.GrandTotal, inv.OutstandingAmount,
		inv.DueDate, inv.PostingDate).Scan(&inv.ID)
}

func (r *InvoiceRepository) AddItem(item *model.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (invoice_id, item_code, item_name, qty)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRow(query, item.InvoiceID, item.ItemCode, item.ItemName, item.Qty).Scan(&item.ID)
}

var _ InvoiceRepositoryInterface = (*InvoiceRepository)(nil)
