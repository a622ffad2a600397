package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/unclebandit/smstrigger-backend/internal/model"
)

type ScheduledSMSRepositoryInterface interface {
	Create(s *model.ScheduledSMS) error
	GetByID(id int) (*model.ScheduledSMS, error)
	// ListDue returns draft messages whose scheduled time has passed.
	ListDue(now time.Time, limit int) ([]model.ScheduledSMS, error)
	// MarkSent flips a draft message to sent. Returns false when the
	// message was already processed, which guards against duplicate
	// sends.
	MarkSent(id int, sentAt time.Time) (bool, error)
	MarkFailed(id int, errorMessage string) error
	// ExistsSince reports whether a message of the trigger type was
	// already created for the customer on or after the cutoff. The
	// trigger engine uses this as its dedup window.
	ExistsSince(customerID int, triggerType string, cutoff time.Time) (bool, error)
	// ExistsForReference reports whether a message was already created
	// for a specific source document (e.g. one invoice).
	ExistsForReference(customerID int, triggerType, referenceType, referenceID string) (bool, error)
	Stats(from, to *time.Time) (map[string]int, error)
}

type ScheduledSMSRepository struct {
	DB *sql.DB
}

const scheduledColumns = `id, customer_id, mobile_no, message, trigger_type, rule_id,
	reference_type, reference_id, status, error_message, scheduled_at, sent_at`

func (r *ScheduledSMSRepository) Create(s *model.ScheduledSMS) error {
	if s.Status == "" {
		s.Status = model.ScheduledDraft
	}
	if s.ScheduledAt.IsZero() {
		s.ScheduledAt = time.Now()
	}
	query := `
		INSERT INTO scheduled_sms (customer_id, mobile_no, message, trigger_type, rule_id,
			reference_type, reference_id, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return r.DB.QueryRow(query, s.CustomerID, s.MobileNo, s.Message, s.TriggerType,
		s.RuleID, s.ReferenceType, s.ReferenceID, s.Status, s.ScheduledAt).Scan(&s.ID)
}

func (r *ScheduledSMSRepository) GetByID(id int) (*model.ScheduledSMS, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_sms WHERE id=$1`
	var s model.ScheduledSMS
	err := r.DB.QueryRow(query, id).Scan(&s.ID, &s.CustomerID, &s.MobileNo, &s.Message,
		&s.TriggerType, &s.RuleID, &s.ReferenceType, &s.ReferenceID, &s.Status,
		&s.ErrorMessage, &s.ScheduledAt, &s.SentAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *ScheduledSMSRepository) ListDue(now time.Time, limit int) ([]model.ScheduledSMS, error) {
	query := `
		SELECT ` + scheduledColumns + ` FROM scheduled_sms
		WHERE status=$1 AND scheduled_at <= $2
		ORDER BY id
		LIMIT $3
	`
	rows, err := r.DB.Query(query, model.ScheduledDraft, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.ScheduledSMS{}
	for rows.Next() {
		var s model.ScheduledSMS
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.MobileNo, &s.Message, &s.TriggerType,
			&s.RuleID, &s.ReferenceType, &s.ReferenceID, &s.Status, &s.ErrorMessage,
			&s.ScheduledAt, &s.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, s)
	}
	return messages, rows.Err()
}

func (r *ScheduledSMSRepository) MarkSent(id int, sentAt time.Time) (bool, error) {
	query := `UPDATE scheduled_sms SET status=$1, sent_at=$2 WHERE id=$3 AND status=$4`
	result, err := r.DB.Exec(query, model.ScheduledSent, sentAt, id, model.ScheduledDraft)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ScheduledSMSRepository) MarkFailed(id int, errorMessage string) error {
	query := `UPDATE scheduled_sms SET status=$1, error_message=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, model.ScheduledFailed, errorMessage, id)
	return err
}

func (r *ScheduledSMSRepository) ExistsSince(customerID int, triggerType string, cutoff time.Time) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM scheduled_sms
		WHERE customer_id=$1 AND trigger_type=$2 AND scheduled_at >= $3
	`
	if err := r.DB.QueryRow(query, customerID, triggerType, cutoff).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ScheduledSMSRepository) ExistsForReference(customerID int, triggerType, referenceType, referenceID string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM scheduled_sms
		WHERE customer_id=$1 AND trigger_type=$2 AND reference_type=$3 AND reference_id=$4
	`
	if err := r.DB.QueryRow(query, customerID, triggerType, referenceType, referenceID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ScheduledSMSRepository) Stats(from, to *time.Time) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM scheduled_sms WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if from != nil {
		query += fmt.Sprintf(" AND scheduled_at >= $%d", argPos)
		args = append(args, *from)
		argPos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND scheduled_at <= $%d", argPos)
		args = append(args, *to)
	}
	query += " GROUP BY status"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0, "draft": 0, "sent": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		if _, ok := stats[status]; ok {
			stats[status] = count
		}
		stats["total"] += count
	}
	return stats, rows.Err()
}

var _ ScheduledSMSRepositoryInterface = (*ScheduledSMSRepository)(nil)
