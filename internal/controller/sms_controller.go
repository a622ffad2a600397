package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
	"github.com/unclebandit/smstrigger-backend/internal/service"
)

type SMSController struct {
	SMSService   *service.SMSService
	SettingsRepo repository.SettingsRepositoryInterface
}

func (c *SMSController) ScheduleSMS(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID  int    `json:"customer_id"`
		Message     string `json:"message"`
		TriggerType string `json:"trigger_type"`
		ScheduledAt string `json:"scheduled_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	var scheduledAt *time.Time
	if body.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, body.ScheduledAt)
		if err != nil {
			http.Error(w, "scheduled_at must be RFC3339", http.StatusBadRequest)
			return
		}
		scheduledAt = &t
	}

	sms, err := c.SMSService.ScheduleSMS(body.CustomerID, body.Message, body.TriggerType, scheduledAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sms)
}

func (c *SMSController) SendSMS(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID int    `json:"customer_id"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sms, err := c.SMSService.SendImmediate(r.Context(), body.CustomerID, body.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(sms)
}

func (c *SMSController) GetSMSStats(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	stats, err := c.SMSService.Stats(from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(stats)
}

// POSInvoiceSMS fires the purchase confirmation for a submitted POS
// invoice if settings allow it.
func (c *SMSController) POSInvoiceSMS(w http.ResponseWriter, r *http.Request) {
	var body service.POSInvoice
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sent, err := c.SMSService.SendPOSInvoiceSMS(r.Context(), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"sms_sent":   sent,
		"invoice_no": body.InvoiceNo,
	})
}

func (c *SMSController) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := c.SettingsRepo.Get()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(settings)
}

func (c *SMSController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body model.Settings
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.SettingsRepo.Update(&body); err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(body)
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
