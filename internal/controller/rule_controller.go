package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
	"github.com/unclebandit/smstrigger-backend/internal/service"
)

type RuleController struct {
	RuleRepo   repository.RuleRepositoryInterface
	RuleEngine *service.RuleEngine
}

func (c *RuleController) CreateRule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RuleName        string `json:"rule_name"`
		TriggerType     string `json:"trigger_type"`
		Conditions      string `json:"conditions"`
		MessageTemplate string `json:"message_template"`
		Frequency       string `json:"frequency"`
		DaysInterval    int    `json:"days_interval"`
		IsActive        *bool  `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rule := &model.TriggerRule{
		RuleName:        body.RuleName,
		TriggerType:     model.TriggerType(body.TriggerType),
		Conditions:      body.Conditions,
		MessageTemplate: body.MessageTemplate,
		Frequency:       model.Frequency(body.Frequency),
		DaysInterval:    body.DaysInterval,
		IsActive:        true,
	}
	if body.IsActive != nil {
		rule.IsActive = *body.IsActive
	}

	if validation := c.RuleEngine.Validate(rule); !validation.Valid {
		writeJSON(w, http.StatusBadRequest, validation)
		return
	}

	if err := c.RuleRepo.Create(rule); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

func (c *RuleController) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := c.RuleRepo.List()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  rules,
		"count": len(rules),
	})
}

func (c *RuleController) GetRule(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	rule, err := c.RuleRepo.GetByID(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(rule)
}

func (c *RuleController) EnableRule(w http.ResponseWriter, r *http.Request) {
	c.setActive(w, r, true)
}

func (c *RuleController) DisableRule(w http.ResponseWriter, r *http.Request) {
	c.setActive(w, r, false)
}

func (c *RuleController) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.RuleRepo.SetActive(id, active); err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"rule_id":   id,
		"is_active": active,
	})
}

// TestRule dry-runs a rule against one customer without sending anything
// or recording a firing.
func (c *RuleController) TestRule(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	// Body is optional; with no customer_id the first customer on file
	// is used as the sample.
	var body struct {
		CustomerID *int `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := c.RuleEngine.TestRule(id, body.CustomerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(result)
}

func (c *RuleController) ValidateConditions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Conditions      string `json:"conditions"`
		MessageTemplate string `json:"message_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	validation := c.RuleEngine.Validate(&model.TriggerRule{
		Conditions:      body.Conditions,
		MessageTemplate: body.MessageTemplate,
	})

	json.NewEncoder(w).Encode(validation)
}
