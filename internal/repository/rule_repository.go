package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/model"
)

type RuleRepositoryInterface interface {
	Create(r *model.TriggerRule) error
	GetByID(id int) (*model.TriggerRule, error)
	List() ([]model.TriggerRule, error)
	ListActive() ([]model.TriggerRule, error)
	SetActive(id int, active bool) error

	// Firing records. One-time rules check HasFired, recurring rules
	// check LastFiredAt. History is never deleted, not even when the
	// rule is disabled.
	HasFired(ruleID, customerID int) (bool, error)
	LastFiredAt(ruleID, customerID int) (*time.Time, error)
	RecordFiring(ruleID, customerID int, firedAt time.Time) error
}

type RuleRepository struct {
	DB *sql.DB
}

const ruleColumns = `id, rule_name, trigger_type, conditions, message_template,
	frequency, days_interval, is_active, created_at, updated_at`

func (r *RuleRepository) Create(rule *model.TriggerRule) error {
	rule.CreatedAt = time.Now()
	query := `
		INSERT INTO trigger_rules (rule_name, trigger_type, conditions, message_template,
			frequency, days_interval, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.DB.QueryRow(query, rule.RuleName, rule.TriggerType, rule.Conditions,
		rule.MessageTemplate, rule.Frequency, rule.DaysInterval, rule.IsActive,
		rule.CreatedAt).Scan(&rule.ID)
}

func (r *RuleRepository) GetByID(id int) (*model.TriggerRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM trigger_rules WHERE id=$1`
	rule, err := scanRule(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewRuleNotFound(id)
		}
		return nil, err
	}
	return rule, nil
}

func (r *RuleRepository) List() ([]model.TriggerRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM trigger_rules ORDER BY id`
	return r.queryRules(query)
}

func (r *RuleRepository) ListActive() ([]model.TriggerRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM trigger_rules WHERE is_active = TRUE ORDER BY id`
	return r.queryRules(query)
}

func (r *RuleRepository) SetActive(id int, active bool) error {
	query := `UPDATE trigger_rules SET is_active=$1, updated_at=NOW() WHERE id=$2`
	result, err := r.DB.Exec(query, active, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErrors.NewRuleNotFound(id)
	}
	return nil
}

func (r *RuleRepository) HasFired(ruleID, customerID int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM rule_firings WHERE rule_id=$1 AND customer_id=$2`
	if err := r.DB.QueryRow(query, ruleID, customerID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RuleRepository) LastFiredAt(ruleID, customerID int) (*time.Time, error) {
	var firedAt time.Time
	query := `SELECT fired_at FROM rule_firings WHERE rule_id=$1 AND customer_id=$2 ORDER BY fired_at DESC LIMIT 1`
	err := r.DB.QueryRow(query, ruleID, customerID).Scan(&firedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &firedAt, nil
}

func (r *RuleRepository) RecordFiring(ruleID, customerID int, firedAt time.Time) error {
	query := `INSERT INTO rule_firings (rule_id, customer_id, fired_at) VALUES ($1, $2, $3)`
	_, err := r.DB.Exec(query, ruleID, customerID, firedAt)
	return err
}

func scanRule(row interface{ Scan(...interface{}) error }) (*model.TriggerRule, error) {
	var rule model.TriggerRule
	err := row.Scan(&rule.ID, &rule.RuleName, &rule.TriggerType, &rule.Conditions,
		&rule.MessageTemplate, &rule.Frequency, &rule.DaysInterval, &rule.IsActive,
		&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepository) queryRules(query string, args ...interface{}) ([]model.TriggerRule, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []model.TriggerRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

var _ RuleRepositoryInterface = (*RuleRepository)(nil)
