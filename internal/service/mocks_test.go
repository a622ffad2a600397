package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/smstrigger-backend/internal/cache"
	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

// In-memory repositories shared across the service tests.

type memCustomerRepo struct {
	customers []model.Customer
	// inactiveIDs and repurchaseIDs stand in for the invoice-history
	// queries the real repository runs.
	inactiveIDs   map[int]bool
	repurchaseIDs map[int]bool
	listErr       error
}

func (m *memCustomerRepo) GetByID(id int) (*model.Customer, error) {
	for i := range m.customers {
		if m.customers[i].ID == id {
			c := m.customers[i]
			return &c, nil
		}
	}
	return nil, appErrors.NewCustomerNotFound(id)
}

func (m *memCustomerRepo) ListByAttributes(attrs map[string]string) ([]model.Customer, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	matched := []model.Customer{}
	for _, c := range m.customers {
		if c.MobileNo == "" {
			continue
		}
		ok := true
		for k, v := range attrs {
			if c.Attributes()[k] != v {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (m *memCustomerRepo) ListBirthdays(monthDay string) ([]model.Customer, error) {
	matched := []model.Customer{}
	for _, c := range m.customers {
		if c.DateOfBirth != nil && c.DateOfBirth.Format("01-02") == monthDay && c.MobileNo != "" {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (m *memCustomerRepo) ListInactiveSince(cutoff time.Time) ([]model.Customer, error) {
	matched := []model.Customer{}
	for _, c := range m.customers {
		if m.inactiveIDs[c.ID] && c.MobileNo != "" {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (m *memCustomerRepo) ListRepurchaseCandidates(itemCode string, since time.Time) ([]model.Customer, error) {
	matched := []model.Customer{}
	for _, c := range m.customers {
		if m.repurchaseIDs[c.ID] && c.MobileNo != "" {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (m *memCustomerRepo) Create(c *model.Customer) error {
	c.ID = len(m.customers) + 1
	m.customers = append(m.customers, *c)
	return nil
}

type memRuleRepo struct {
	rules   []model.TriggerRule
	firings map[string][]time.Time
}

func firingKey(ruleID, customerID int) string {
	return fmt.Sprintf("%d:%d", ruleID, customerID)
}

func (m *memRuleRepo) Create(r *model.TriggerRule) error {
	r.ID = len(m.rules) + 1
	m.rules = append(m.rules, *r)
	return nil
}

func (m *memRuleRepo) GetByID(id int) (*model.TriggerRule, error) {
	for i := range m.rules {
		if m.rules[i].ID == id {
			r := m.rules[i]
			return &r, nil
		}
	}
	return nil, appErrors.NewRuleNotFound(id)
}

func (m *memRuleRepo) List() ([]model.TriggerRule, error) { return m.rules, nil }

func (m *memRuleRepo) ListActive() ([]model.TriggerRule, error) {
	active := []model.TriggerRule{}
	for _, r := range m.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (m *memRuleRepo) SetActive(id int, active bool) error {
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules[i].IsActive = active
			return nil
		}
	}
	return appErrors.NewRuleNotFound(id)
}

func (m *memRuleRepo) HasFired(ruleID, customerID int) (bool, error) {
	return len(m.firings[firingKey(ruleID, customerID)]) > 0, nil
}

func (m *memRuleRepo) LastFiredAt(ruleID, customerID int) (*time.Time, error) {
	times := m.firings[firingKey(ruleID, customerID)]
	if len(times) == 0 {
		return nil, nil
	}
	last := times[len(times)-1]
	return &last, nil
}

func (m *memRuleRepo) RecordFiring(ruleID, customerID int, firedAt time.Time) error {
	if m.firings == nil {
		m.firings = map[string][]time.Time{}
	}
	key := firingKey(ruleID, customerID)
	m.firings[key] = append(m.firings[key], firedAt)
	return nil
}

type memScheduledRepo struct {
	messages []*model.ScheduledSMS
}

func (m *memScheduledRepo) Create(s *model.ScheduledSMS) error {
	if s.Status == "" {
		s.Status = model.ScheduledDraft
	}
	if s.ScheduledAt.IsZero() {
		s.ScheduledAt = time.Now()
	}
	s.ID = len(m.messages) + 1
	copied := *s
	m.messages = append(m.messages, &copied)
	return nil
}

func (m *memScheduledRepo) GetByID(id int) (*model.ScheduledSMS, error) {
	for _, s := range m.messages {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (m *memScheduledRepo) ListDue(now time.Time, limit int) ([]model.ScheduledSMS, error) {
	due := []model.ScheduledSMS{}
	for _, s := range m.messages {
		if s.Status == model.ScheduledDraft && !s.ScheduledAt.After(now) {
			due = append(due, *s)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (m *memScheduledRepo) MarkSent(id int, sentAt time.Time) (bool, error) {
	for _, s := range m.messages {
		if s.ID == id {
			if s.Status != model.ScheduledDraft {
				return false, nil
			}
			s.Status = model.ScheduledSent
			s.SentAt = &sentAt
			return true, nil
		}
	}
	return false, nil
}

func (m *memScheduledRepo) MarkFailed(id int, errorMessage string) error {
	for _, s := range m.messages {
		if s.ID == id {
			s.Status = model.ScheduledFailed
			s.ErrorMessage = errorMessage
		}
	}
	return nil
}

func (m *memScheduledRepo) ExistsSince(customerID int, triggerType string, cutoff time.Time) (bool, error) {
	for _, s := range m.messages {
		if s.CustomerID == customerID && s.TriggerType == triggerType && !s.ScheduledAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memScheduledRepo) ExistsForReference(customerID int, triggerType, referenceType, referenceID string) (bool, error) {
	for _, s := range m.messages {
		if s.CustomerID == customerID && s.TriggerType == triggerType &&
			s.ReferenceType == referenceType && s.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memScheduledRepo) Stats(from, to *time.Time) (map[string]int, error) {
	stats := map[string]int{"total": 0, "draft": 0, "sent": 0, "failed": 0}
	for _, s := range m.messages {
		if from != nil && s.ScheduledAt.Before(*from) {
			continue
		}
		if to != nil && s.ScheduledAt.After(*to) {
			continue
		}
		stats[string(s.Status)]++
		stats["total"]++
	}
	return stats, nil
}

type memInvoiceRepo struct {
	overdue []model.OverdueInvoice
}

func (m *memInvoiceRepo) ListOverdue(dueBefore time.Time) ([]model.OverdueInvoice, error) {
	matched := []model.OverdueInvoice{}
	for _, inv := range m.overdue {
		if !inv.DueDate.After(dueBefore) {
			matched = append(matched, inv)
		}
	}
	return matched, nil
}

func (m *memInvoiceRepo) Create(inv *model.Invoice) error    { return nil }
func (m *memInvoiceRepo) AddItem(i *model.InvoiceItem) error { return nil }

type memCampaignRepo struct {
	mu         sync.Mutex
	campaigns  map[int]*model.Campaign
	recipients map[int][]model.Recipient
	logs       []model.SendLog
	nextID     int
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{
		campaigns:  map[int]*model.Campaign{},
		recipients: map[int][]model.Recipient{},
	}
}

func (m *memCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	copied := *c
	m.campaigns[c.ID] = &copied
	return nil
}

func (m *memCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copied := *c
	return &copied, nil
}

func (m *memCampaignRepo) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*model.Campaign{}
	for i := 1; i <= m.nextID; i++ {
		c, ok := m.campaigns[i]
		if !ok {
			continue
		}
		if status != "" && string(c.Status) != status {
			continue
		}
		copied := *c
		all = append(all, &copied)
	}
	total := len(all)
	if offset >= len(all) {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *memCampaignRepo) UpdateStatus(campaignID int, status model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.Status = status
	return nil
}

func (m *memCampaignRepo) transition(campaignID int, from, to model.CampaignStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return false, appErrors.NewCampaignNotFound(campaignID)
	}
	if c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (m *memCampaignRepo) MarkQueued(campaignID int) (bool, error) {
	return m.transition(campaignID, model.CampaignDraft, model.CampaignQueued)
}

func (m *memCampaignRepo) RequeueForRetry(campaignID int) (bool, error) {
	return m.transition(campaignID, model.CampaignFailed, model.CampaignQueued)
}

func (m *memCampaignRepo) ClaimForSending(campaignID int) (bool, error) {
	return m.transition(campaignID, model.CampaignQueued, model.CampaignSending)
}

func (m *memCampaignRepo) FinalizeCounts(campaignID int, status model.CampaignStatus, successCount, failedCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.Status = status
	c.SuccessCount = successCount
	c.FailedCount = failedCount
	return nil
}

func (m *memCampaignRepo) ReplaceRecipients(campaignID int, recipients []model.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	stored := make([]model.Recipient, len(recipients))
	for i, r := range recipients {
		r.ID = i + 1
		r.CampaignID = campaignID
		stored[i] = r
	}
	m.recipients[campaignID] = stored
	c.TotalRecipients = len(stored)
	return nil
}

func (m *memCampaignRepo) ListRecipients(campaignID int) ([]model.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Recipient{}, m.recipients[campaignID]...), nil
}

func (m *memCampaignRepo) UpdateRecipientStatus(recipientID int, status model.RecipientStatus, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for campaignID := range m.recipients {
		for i := range m.recipients[campaignID] {
			if m.recipients[campaignID][i].ID == recipientID {
				m.recipients[campaignID][i].Status = status
				m.recipients[campaignID][i].ErrorMessage = errorMessage
				return nil
			}
		}
	}
	return fmt.Errorf("recipient %d not found", recipientID)
}

func (m *memCampaignRepo) ResetFailedRecipients(campaignID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset := 0
	for i := range m.recipients[campaignID] {
		if m.recipients[campaignID][i].Status == model.RecipientFailed {
			m.recipients[campaignID][i].Status = model.RecipientPending
			m.recipients[campaignID][i].ErrorMessage = ""
			reset++
		}
	}
	return reset, nil
}

func (m *memCampaignRepo) Stats(campaignID int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{"pending": 0, "sent": 0, "failed": 0}
	for _, r := range m.recipients[campaignID] {
		stats[string(r.Status)]++
	}
	return stats, nil
}

func (m *memCampaignRepo) CreateSendLog(l *model.SendLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = len(m.logs) + 1
	m.logs = append(m.logs, *l)
	return nil
}

type memSettingsRepo struct {
	settings *model.Settings
}

func (m *memSettingsRepo) Get() (*model.Settings, error) {
	if m.settings == nil {
		return repository.DefaultSettings(), nil
	}
	copied := *m.settings
	return &copied, nil
}

func (m *memSettingsRepo) Update(s *model.Settings) error {
	copied := *s
	m.settings = &copied
	return nil
}

// fakeSender records every send and fails numbers listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func (f *fakeSender) Send(ctx context.Context, mobileNo, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[mobileNo]; ok {
		return err
	}
	f.sent = append(f.sent, mobileNo+"|"+message)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type memOTPCache struct {
	mu         sync.Mutex
	challenges map[int]*model.OTPChallenge
}

func newMemOTPCache() *memOTPCache {
	return &memOTPCache{challenges: map[int]*model.OTPChallenge{}}
}

func (m *memOTPCache) StoreChallenge(ctx context.Context, challenge *model.OTPChallenge, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *challenge
	m.challenges[challenge.CustomerID] = &copied
	return nil
}

func (m *memOTPCache) GetChallenge(ctx context.Context, customerID int) (*model.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[customerID]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *memOTPCache) UpdateChallenge(ctx context.Context, challenge *model.OTPChallenge) error {
	return m.StoreChallenge(ctx, challenge, 0)
}

func (m *memOTPCache) DeleteChallenge(ctx context.Context, customerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, customerID)
	return nil
}

var (
	_ repository.CustomerRepositoryInterface     = (*memCustomerRepo)(nil)
	_ repository.RuleRepositoryInterface         = (*memRuleRepo)(nil)
	_ repository.ScheduledSMSRepositoryInterface = (*memScheduledRepo)(nil)
	_ repository.InvoiceRepositoryInterface      = (*memInvoiceRepo)(nil)
	_ repository.CampaignRepositoryInterface     = (*memCampaignRepo)(nil)
	_ repository.SettingsRepositoryInterface     = (*memSettingsRepo)(nil)
	_ cache.OTPCache                             = (*memOTPCache)(nil)
)
