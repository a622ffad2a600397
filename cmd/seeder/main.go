package main

import (
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/smstrigger-backend/internal/config"
	"github.com/unclebandit/smstrigger-backend/internal/db"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

// Seeds a demo dataset: a handful of customers with invoices, the three
// stock trigger rules and default POS settings.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on OS environment variables")
	}

	cfg := config.LoadConfig()

	database, err := db.Open(cfg.DatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close()

	customerRepo := &repository.CustomerRepository{DB: database}
	ruleRepo := &repository.RuleRepository{DB: database}
	invoiceRepo := &repository.InvoiceRepository{DB: database}
	settingsRepo := &repository.SettingsRepository{DB: database}

	now := time.Now()
	birthday := now.AddDate(-30, 0, 0)

	customers := []model.Customer{
		{
			CustomerName:  "Jane Wanjiku",
			MobileNo:      "+254712345678",
			CustomerType:  "Individual",
			CustomerGroup: "Retail",
			Territory:     "Nairobi",
			Gender:        "Female",
			DateOfBirth:   &birthday,
			SMSEnabled:    true,
		},
		{
			CustomerName:  "Otieno Traders Ltd",
			MobileNo:      "+254722000111",
			CustomerType:  "Company",
			CustomerGroup: "Wholesale",
			Territory:     "Kisumu",
			SMSEnabled:    true,
		},
		{
			CustomerName:  "Walking Customer",
			MobileNo:      "",
			CustomerType:  "Individual",
			CustomerGroup: "Walking Customer",
			Territory:     "Nairobi",
			SMSEnabled:    false,
		},
		{
			CustomerName:  "Amina Hassan",
			MobileNo:      "+254733999888",
			CustomerType:  "Individual",
			CustomerGroup: "Retail",
			Territory:     "Mombasa",
			Gender:        "Female",
			Religion:      "Muslim",
			Profession:    "Teacher",
			SMSEnabled:    true,
		},
	}

	for i := range customers {
		if err := customerRepo.Create(&customers[i]); err != nil {
			log.WithError(err).Fatal("failed to seed customer")
		}
	}
	log.WithField("count", len(customers)).Info("seeded customers")

	// One overdue invoice and one old paid invoice for the trigger
	// windows to pick up.
	invoices := []model.Invoice{
		{
			CustomerID:        customers[0].ID,
			GrandTotal:        4500,
			OutstandingAmount: 4500,
			DueDate:           now.AddDate(0, 0, -10),
			PostingDate:       now.AddDate(0, 0, -40),
		},
		{
			CustomerID:        customers[1].ID,
			GrandTotal:        120000,
			OutstandingAmount: 0,
			DueDate:           now.AddDate(0, 0, -95),
			PostingDate:       now.AddDate(0, 0, -120),
		},
	}
	for i := range invoices {
		if err := invoiceRepo.Create(&invoices[i]); err != nil {
			log.WithError(err).Fatal("failed to seed invoice")
		}
	}
	if err := invoiceRepo.AddItem(&model.InvoiceItem{
		InvoiceID: invoices[1].ID,
		ItemCode:  "FERT-NPK-50KG",
		ItemName:  "NPK Fertilizer 50kg",
		Qty:       10,
	}); err != nil {
		log.WithError(err).Fatal("failed to seed invoice item")
	}
	log.WithField("count", len(invoices)).Info("seeded invoices")

	rules := []model.TriggerRule{
		{
			RuleName:        "Payment Reminder",
			TriggerType:     model.TriggerInvoiceDue,
			Conditions:      "{}",
			MessageTemplate: "Dear {customer_name}, your invoice {invoice_no} of {amount} is overdue. Kindly settle at your earliest convenience.",
			Frequency:       model.FrequencyRecurring,
			DaysInterval:    7,
			IsActive:        true,
		},
		{
			RuleName:        "Birthday Wishes",
			TriggerType:     model.TriggerBirthday,
			Conditions:      "{}",
			MessageTemplate: "Happy birthday {customer_name}! Enjoy your special day.",
			Frequency:       model.FrequencyRecurring,
			DaysInterval:    1,
			IsActive:        true,
		},
		{
			RuleName:        "We Miss You",
			TriggerType:     model.TriggerInactive,
			Conditions:      "{}",
			MessageTemplate: "Hi {customer_name}, we have missed you! Visit us again and enjoy our latest offers.",
			Frequency:       model.FrequencyRecurring,
			DaysInterval:    90,
			IsActive:        true,
		},
	}
	for i := range rules {
		if err := ruleRepo.Create(&rules[i]); err != nil {
			log.WithError(err).Fatal("failed to seed trigger rule")
		}
	}
	log.WithField("count", len(rules)).Info("seeded trigger rules")

	settings := repository.DefaultSettings()
	settings.EnablePOSSMS = true
	settings.EnablePOSOTP = true
	if err := settingsRepo.Update(settings); err != nil {
		log.WithError(err).Fatal("failed to seed settings")
	}
	log.Info("seeded settings")
}
