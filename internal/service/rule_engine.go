package service

import (
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

// Default reference windows per trigger type, in days, used when a rule
// carries no days_interval.
var defaultIntervals = map[model.TriggerType]int{
	model.TriggerInvoiceDue:    7,
	model.TriggerInactive:      90,
	model.TriggerRepurchase:    30,
	model.TriggerBirthday:      1,
	model.TriggerCustomerType:  30,
	model.TriggerCustomerGroup: 30,
}

// RuleMatch is one (rule, customer) pair that should fire, along with the
// template context and the source document that triggered it.
type RuleMatch struct {
	Rule          model.TriggerRule
	Customer      model.Customer
	Context       map[string]string
	ReferenceType string
	ReferenceID   string
}

type RuleEngine struct {
	RuleRepo      repository.RuleRepositoryInterface
	CustomerRepo  repository.CustomerRepositoryInterface
	InvoiceRepo   repository.InvoiceRepositoryInterface
	ScheduledRepo repository.ScheduledSMSRepositoryInterface
}

// MatchRules evaluates every active rule against the directory as of now
// and returns the pairs that are due to fire. It has no side effects;
// ProcessTriggers is the mutating entry point.
func (e *RuleEngine) MatchRules(now time.Time) ([]RuleMatch, error) {
	rules, err := e.RuleRepo.ListActive()
	if err != nil {
		return nil, err
	}

	matches := []RuleMatch{}
	for _, rule := range rules {
		ruleMatches, err := e.matchRule(rule, now)
		if err != nil {
			// One broken rule must not stop the rest of the run.
			log.WithFields(log.Fields{"rule_id": rule.ID, "trigger_type": rule.TriggerType}).
				WithError(err).Warn("skipping rule")
			continue
		}
		matches = append(matches, ruleMatches...)
	}
	return matches, nil
}

// ProcessTriggers runs a full trigger pass: matching rules produce a
// scheduled SMS and a firing record per target customer.
func (e *RuleEngine) ProcessTriggers(now time.Time) error {
	matches, err := e.MatchRules(now)
	if err != nil {
		return err
	}

	for _, match := range matches {
		message := RenderTemplate(match.Rule.MessageTemplate, match.Context)
		ruleID := match.Rule.ID
		sms := &model.ScheduledSMS{
			CustomerID:    match.Customer.ID,
			MobileNo:      match.Customer.MobileNo,
			Message:       message,
			TriggerType:   string(match.Rule.TriggerType),
			RuleID:        &ruleID,
			ReferenceType: match.ReferenceType,
			ReferenceID:   match.ReferenceID,
			ScheduledAt:   now,
		}
		if err := e.ScheduledRepo.Create(sms); err != nil {
			log.WithFields(log.Fields{"rule_id": ruleID, "customer_id": match.Customer.ID}).
				WithError(err).Error("failed to schedule sms")
			continue
		}
		if err := e.RuleRepo.RecordFiring(ruleID, match.Customer.ID, now); err != nil {
			log.WithFields(log.Fields{"rule_id": ruleID, "customer_id": match.Customer.ID}).
				WithError(err).Error("failed to record rule firing")
		}
	}
	return nil
}

func (e *RuleEngine) matchRule(rule model.TriggerRule, now time.Time) ([]RuleMatch, error) {
	// Malformed conditions make the rule non-matching until an operator
	// fixes it; MatchRules logs and moves on.
	pred, err := ParseConditions(rule.Conditions)
	if err != nil {
		return nil, err
	}

	switch rule.TriggerType {
	case model.TriggerInvoiceDue:
		return e.matchInvoiceDue(rule, pred, now)
	case model.TriggerBirthday:
		return e.matchBirthday(rule, pred, now)
	case model.TriggerInactive:
		return e.matchInactive(rule, pred, now)
	case model.TriggerRepurchase:
		return e.matchRepurchase(rule, pred, now)
	case model.TriggerCustomerType:
		return e.matchByAttribute(rule, pred, now, "customer_type")
	case model.TriggerCustomerGroup:
		return e.matchByAttribute(rule, pred, now, "customer_group")
	default:
		return nil, fmt.Errorf("unknown trigger type: %s", rule.TriggerType)
	}
}

func (e *RuleEngine) matchInvoiceDue(rule model.TriggerRule, pred map[string]string, now time.Time) ([]RuleMatch, error) {
	dueBefore := now.AddDate(0, 0, -e.interval(rule))
	invoices, err := e.InvoiceRepo.ListOverdue(dueBefore)
	if err != nil {
		return nil, err
	}

	matches := []RuleMatch{}
	for _, inv := range invoices {
		referenceID := strconv.Itoa(inv.ID)
		exists, err := e.ScheduledRepo.ExistsForReference(inv.CustomerID, string(rule.TriggerType), "invoice", referenceID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		customer, ok, err := e.eligibleCustomer(rule, pred, inv.CustomerID, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		matches = append(matches, RuleMatch{
			Rule:     rule,
			Customer: *customer,
			Context: mergeContext(customer.Attributes(), map[string]string{
				"invoice_no": referenceID,
				"amount":     strconv.FormatFloat(inv.OutstandingAmount, 'f', 2, 64),
			}),
			ReferenceType: "invoice",
			ReferenceID:   referenceID,
		})
	}
	return matches, nil
}

func (e *RuleEngine) matchBirthday(rule model.TriggerRule, pred map[string]string, now time.Time) ([]RuleMatch, error) {
	customers, err := e.CustomerRepo.ListBirthdays(now.Format("01-02"))
	if err != nil {
		return nil, err
	}
	return e.filterCandidates(rule, pred, customers, now)
}

func (e *RuleEngine) matchInactive(rule model.TriggerRule, pred map[string]string, now time.Time) ([]RuleMatch, error) {
	cutoff := now.AddDate(0, 0, -e.interval(rule))
	customers, err := e.CustomerRepo.ListInactiveSince(cutoff)
	if err != nil {
		return nil, err
	}
	return e.filterCandidates(rule, pred, customers, now)
}

func (e *RuleEngine) matchRepurchase(rule model.TriggerRule, pred map[string]string, now time.Time) ([]RuleMatch, error) {
	itemCode := pred["item_code"]
	if itemCode == "" {
		return nil, nil
	}

	since := now.AddDate(0, 0, -e.interval(rule))
	customers, err := e.CustomerRepo.ListRepurchaseCandidates(itemCode, since)
	if err != nil {
		return nil, err
	}

	// item_code selects invoices, not a customer attribute.
	attrPred := make(map[string]string, len(pred))
	for k, v := range pred {
		if k != "item_code" {
			attrPred[k] = v
		}
	}

	matches, err := e.filterCandidates(rule, attrPred, customers, now)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Context["item_code"] = itemCode
	}
	return matches, nil
}

func (e *RuleEngine) matchByAttribute(rule model.TriggerRule, pred map[string]string, now time.Time, key string) ([]RuleMatch, error) {
	if pred[key] == "" {
		return nil, nil
	}
	customers, err := e.CustomerRepo.ListByAttributes(pred)
	if err != nil {
		return nil, err
	}
	// The directory query already applied the whole predicate.
	return e.filterCandidates(rule, nil, customers, now)
}

// filterCandidates applies the rule's conditions and frequency gate to a
// candidate set.
func (e *RuleEngine) filterCandidates(rule model.TriggerRule, pred map[string]string, customers []model.Customer, now time.Time) ([]RuleMatch, error) {
	matches := []RuleMatch{}
	for _, customer := range customers {
		if len(pred) > 0 && !EvaluateConditions(pred, customer.Attributes()) {
			continue
		}
		ok, err := e.frequencyAllows(rule, customer.ID, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		matches = append(matches, RuleMatch{
			Rule:     rule,
			Customer: customer,
			Context:  customer.Attributes(),
		})
	}
	return matches, nil
}

// eligibleCustomer loads one customer and applies conditions plus the
// frequency gate.
func (e *RuleEngine) eligibleCustomer(rule model.TriggerRule, pred map[string]string, customerID int, now time.Time) (*model.Customer, bool, error) {
	customer, err := e.CustomerRepo.GetByID(customerID)
	if err != nil {
		return nil, false, err
	}
	if len(pred) > 0 && !EvaluateConditions(pred, customer.Attributes()) {
		return nil, false, nil
	}
	ok, err := e.frequencyAllows(rule, customerID, now)
	if err != nil {
		return nil, false, err
	}
	return customer, ok, nil
}

// frequencyAllows enforces the firing semantics: one-time rules never
// refire for a customer they already fired for, recurring rules refire
// only once their interval has elapsed since the last firing.
func (e *RuleEngine) frequencyAllows(rule model.TriggerRule, customerID int, now time.Time) (bool, error) {
	if rule.Frequency == model.FrequencyOneTime {
		fired, err := e.RuleRepo.HasFired(rule.ID, customerID)
		if err != nil {
			return false, err
		}
		return !fired, nil
	}

	last, err := e.RuleRepo.LastFiredAt(rule.ID, customerID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}
	interval := time.Duration(e.interval(rule)) * 24 * time.Hour
	return now.Sub(*last) >= interval, nil
}

func (e *RuleEngine) interval(rule model.TriggerRule) int {
	if rule.DaysInterval > 0 {
		return rule.DaysInterval
	}
	return defaultIntervals[rule.TriggerType]
}

// contextPlaceholders are the non-attribute placeholders each trigger
// type injects when rendering.
var contextPlaceholders = map[model.TriggerType][]string{
	model.TriggerInvoiceDue: {"invoice_no", "amount"},
	model.TriggerRepurchase: {"item_code"},
}

// Validate reports condition parse errors and unresolved template
// placeholders without raising.
func (e *RuleEngine) Validate(rule *model.TriggerRule) model.RuleValidation {
	result := model.RuleValidation{Valid: true}

	if _, err := ParseConditions(rule.Conditions); err != nil {
		result.Valid = false
		result.ConditionError = err.Error()
	}

	known := make(map[string]struct{})
	for key := range (&model.Customer{}).Attributes() {
		known[key] = struct{}{}
	}
	for _, key := range contextPlaceholders[rule.TriggerType] {
		known[key] = struct{}{}
	}

	if unresolved := UnresolvedPlaceholders(rule.MessageTemplate, known); len(unresolved) > 0 {
		result.Valid = false
		result.UnresolvedPlaceholders = unresolved
	}
	return result
}

// RuleTestResult is the preview returned by TestRule.
type RuleTestResult struct {
	Customer     int    `json:"customer"`
	CustomerName string `json:"customer_name"`
	MobileNo     string `json:"mobile_no"`
	Message      string `json:"message"`
}

// TestRule renders a rule against a sample customer without sending or
// recording anything.
func (e *RuleEngine) TestRule(ruleID int, customerID *int) (*RuleTestResult, error) {
	rule, err := e.RuleRepo.GetByID(ruleID)
	if err != nil {
		return nil, err
	}

	var customer *model.Customer
	if customerID != nil {
		customer, err = e.CustomerRepo.GetByID(*customerID)
		if err != nil {
			return nil, err
		}
	} else {
		customers, err := e.CustomerRepo.ListByAttributes(map[string]string{})
		if err != nil {
			return nil, err
		}
		if len(customers) == 0 {
			return nil, fmt.Errorf("no customer with a mobile number available for testing")
		}
		customer = &customers[0]
	}

	context := customer.Attributes()
	pred, _ := ParseConditions(rule.Conditions)
	switch rule.TriggerType {
	case model.TriggerInvoiceDue:
		context = mergeContext(context, map[string]string{"invoice_no": "1001", "amount": "1500.00"})
	case model.TriggerRepurchase:
		if itemCode := pred["item_code"]; itemCode != "" {
			context["item_code"] = itemCode
		}
	}

	return &RuleTestResult{
		Customer:     customer.ID,
		CustomerName: customer.CustomerName,
		MobileNo:     customer.MobileNo,
		Message:      RenderTemplate(rule.MessageTemplate, context),
	}, nil
}

func mergeContext(attrs, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(attrs)+len(extra))
	for k, v := range attrs {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
