package model

import "time"

// Invoice is the slice of the sales ledger the trigger engine reads:
// overdue balances drive invoice-due reminders, posting dates drive
// inactivity and repurchase windows.
type Invoice struct {
	ID                int       `db:"id" json:"id"`
	CustomerID        int       `db:"customer_id" json:"customer_id"`
	GrandTotal        float64   `db:"grand_total" json:"grand_total"`
	OutstandingAmount float64   `db:"outstanding_amount" json:"outstanding_amount"`
	DueDate           time.Time `db:"due_date" json:"due_date"`
	PostingDate       time.Time `db:"posting_date" json:"posting_date"`
}

type InvoiceItem struct {
	ID        int     `db:"id" json:"id"`
	InvoiceID int     `db:"invoice_id" json:"invoice_id"`
	ItemCode  string  `db:"item_code" json:"item_code"`
	ItemName  string  `db:"item_name" json:"item_name"`
	Qty       float64 `db:"qty" json:"qty"`
}

// OverdueInvoice is the join row the invoice-due trigger works from.
type OverdueInvoice struct {
	Invoice
	CustomerName string `db:"customer_name" json:"customer_name"`
	MobileNo     string `db:"mobile_no" json:"mobile_no"`
}
