package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/smstrigger-backend/internal/gateway"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

// SMSService owns single scheduled messages: ad-hoc sends, trigger-engine
// output and POS confirmations all land here.
type SMSService struct {
	ScheduledRepo repository.ScheduledSMSRepositoryInterface
	CustomerRepo  repository.CustomerRepositoryInterface
	SettingsRepo  repository.SettingsRepositoryInterface
	Sender        gateway.Sender
}

func (s *SMSService) ScheduleSMS(customerID int, message, triggerType string, scheduledAt *time.Time) (*model.ScheduledSMS, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}

	customer, err := s.CustomerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(customer.MobileNo) == "" {
		return nil, fmt.Errorf("customer %d has no mobile number", customerID)
	}

	if triggerType == "" {
		triggerType = "custom"
	}
	at := time.Now()
	if scheduledAt != nil {
		at = *scheduledAt
	}

	sms := &model.ScheduledSMS{
		CustomerID:  customerID,
		MobileNo:    customer.MobileNo,
		Message:     message,
		TriggerType: triggerType,
		ScheduledAt: at,
	}
	if err := s.ScheduledRepo.Create(sms); err != nil {
		return nil, err
	}
	return sms, nil
}

func (s *SMSService) SendImmediate(ctx context.Context, customerID int, message string) (*model.ScheduledSMS, error) {
	sms, err := s.ScheduleSMS(customerID, message, "custom", nil)
	if err != nil {
		return nil, err
	}
	if err := s.Deliver(ctx, sms); err != nil {
		return sms, err
	}
	return sms, nil
}

// Deliver attempts one scheduled message. The draft-status claim makes a
// duplicate delivery of the same row a no-op.
func (s *SMSService) Deliver(ctx context.Context, sms *model.ScheduledSMS) error {
	claimed, err := s.ScheduledRepo.MarkSent(sms.ID, time.Now())
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("sms %d already processed", sms.ID)
	}

	if err := s.Sender.Send(ctx, sms.MobileNo, sms.Message); err != nil {
		if markErr := s.ScheduledRepo.MarkFailed(sms.ID, err.Error()); markErr != nil {
			log.WithField("sms_id", sms.ID).WithError(markErr).Error("failed to mark sms failed")
		}
		return err
	}
	return nil
}

// FlushDue sends every draft message whose scheduled time has passed.
// Failures are isolated per message.
func (s *SMSService) FlushDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.ScheduledRepo.ListDue(now, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		if err := s.Deliver(ctx, &due[i]); err != nil {
			log.WithField("sms_id", due[i].ID).WithError(err).Warn("scheduled sms delivery failed")
			continue
		}
		sent++
	}
	return sent, nil
}

// SMSStats is the status histogram over a date range.
type SMSStats struct {
	Total       int            `json:"total"`
	Stats       map[string]int `json:"stats"`
	SuccessRate float64        `json:"success_rate"`
}

func (s *SMSService) Stats(from, to *time.Time) (*SMSStats, error) {
	stats, err := s.ScheduledRepo.Stats(from, to)
	if err != nil {
		return nil, err
	}

	total := stats["total"]
	rate := 0.0
	if total > 0 {
		rate = float64(stats["sent"]) / float64(total) * 100
	}
	return &SMSStats{Total: total, Stats: stats, SuccessRate: rate}, nil
}

// POSInvoice is the submitted-sale event that may produce a confirmation
// SMS.
type POSInvoice struct {
	CustomerID  int     `json:"customer_id"`
	InvoiceNo   string  `json:"invoice_no"`
	GrandTotal  float64 `json:"grand_total"`
	PostingDate string  `json:"posting_date"`
	Items       string  `json:"items"`
	PaymentMode string  `json:"payment_mode"`
}

// SendPOSInvoiceSMS sends the settings-gated purchase confirmation for a
// submitted POS invoice. A disabled toggle or an out-of-policy sale is
// not an error; the SMS is simply skipped.
func (s *SMSService) SendPOSInvoiceSMS(ctx context.Context, inv POSInvoice) (bool, error) {
	settings, err := s.SettingsRepo.Get()
	if err != nil {
		return false, err
	}
	if !settings.EnablePOSSMS {
		return false, nil
	}
	if inv.GrandTotal < settings.POSMinAmount {
		return false, nil
	}

	customer, err := s.CustomerRepo.GetByID(inv.CustomerID)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(customer.MobileNo) == "" || !customer.SMSEnabled {
		return false, nil
	}

	if settings.POSCustomerTypes != "" {
		allowed := false
		for _, t := range strings.Split(settings.POSCustomerTypes, ",") {
			if customer.CustomerType == strings.TrimSpace(t) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, nil
		}
	}

	message := RenderTemplate(settings.POSSMSTemplate, map[string]string{
		"customer_name": customer.CustomerName,
		"invoice_no":    inv.InvoiceNo,
		"amount":        strconv.FormatFloat(inv.GrandTotal, 'f', 2, 64),
		"date":          inv.PostingDate,
		"items":         inv.Items,
		"payment_mode":  inv.PaymentMode,
	})

	sms := &model.ScheduledSMS{
		CustomerID:    inv.CustomerID,
		MobileNo:      customer.MobileNo,
		Message:       message,
		TriggerType:   "pos_invoice",
		ReferenceType: "pos_invoice",
		ReferenceID:   inv.InvoiceNo,
		ScheduledAt:   time.Now(),
	}
	if err := s.ScheduledRepo.Create(sms); err != nil {
		return false, err
	}

	if err := s.Deliver(ctx, sms); err != nil {
		return false, err
	}
	return true, nil
}
