package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	List(offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID int, status model.CampaignStatus) error
	// MarkQueued moves a draft campaign to queued. Returns false when the
	// campaign was not in draft, which rejects double submission.
	MarkQueued(campaignID int) (bool, error)
	// RequeueForRetry moves a failed campaign back to queued.
	RequeueForRetry(campaignID int) (bool, error)
	// ClaimForSending moves a queued campaign to sending. Returns false
	// when another worker holds the campaign already.
	ClaimForSending(campaignID int) (bool, error)
	// FinalizeCounts writes the terminal status and the aggregate counts
	// in one statement.
	FinalizeCounts(campaignID int, status model.CampaignStatus, successCount, failedCount int) error

	// Recipients
	ReplaceRecipients(campaignID int, recipients []model.Recipient) error
	ListRecipients(campaignID int) ([]model.Recipient, error)
	UpdateRecipientStatus(recipientID int, status model.RecipientStatus, errorMessage string) error
	ResetFailedRecipients(campaignID int) (int, error)

	Stats(campaignID int) (map[string]int, error)
	CreateSendLog(l *model.SendLog) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, filter_by, filter_value, custom_filter, message, status,
	total_recipients, success_count, failed_count, created_at, updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
		INSERT INTO campaigns (name, filter_by, filter_value, custom_filter, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRow(query, c.Name, c.FilterBy, c.FilterValue, c.CustomFilter,
		c.Message, c.Status, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.FilterBy, &c.FilterValue,
		&c.CustomFilter, &c.Message, &c.Status, &c.TotalRecipients, &c.SuccessCount,
		&c.FailedCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.FilterBy, &c.FilterValue, &c.CustomFilter,
			&c.Message, &c.Status, &c.TotalRecipients, &c.SuccessCount, &c.FailedCount,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		countArgs = append(countArgs, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

func (r *CampaignRepository) MarkQueued(campaignID int) (bool, error) {
	return r.transition(campaignID, model.CampaignDraft, model.CampaignQueued)
}

func (r *CampaignRepository) RequeueForRetry(campaignID int) (bool, error) {
	return r.transition(campaignID, model.CampaignFailed, model.CampaignQueued)
}

func (r *CampaignRepository) ClaimForSending(campaignID int) (bool, error) {
	return r.transition(campaignID, model.CampaignQueued, model.CampaignSending)
}

// transition performs a guarded status move; the row count tells whether
// this caller won the transition.
func (r *CampaignRepository) transition(campaignID int, from, to model.CampaignStatus) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	result, err := r.DB.Exec(query, to, campaignID, from)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *CampaignRepository) FinalizeCounts(campaignID int, status model.CampaignStatus, successCount, failedCount int) error {
	query := `
		UPDATE campaigns
		SET status=$1, success_count=$2, failed_count=$3, updated_at=NOW()
		WHERE id=$4
	`
	_, err := r.DB.Exec(query, status, successCount, failedCount, campaignID)
	return err
}

// ====================== Recipients ======================

func (r *CampaignRepository) ReplaceRecipients(campaignID int, recipients []model.Recipient) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM recipients WHERE campaign_id=$1`, campaignID); err != nil {
		return err
	}

	insert := `
		INSERT INTO recipients (campaign_id, customer_id, customer_name, mobile_no, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, recipient := range recipients {
		if _, err := tx.Exec(insert, campaignID, recipient.CustomerID,
			recipient.CustomerName, recipient.MobileNo, model.RecipientPending); err != nil {
			return err
		}
	}

	update := `UPDATE campaigns SET total_recipients=$1, updated_at=NOW() WHERE id=$2`
	if _, err := tx.Exec(update, len(recipients), campaignID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *CampaignRepository) ListRecipients(campaignID int) ([]model.Recipient, error) {
	query := `
		SELECT id, campaign_id, customer_id, customer_name, mobile_no, status, error_message, sent_at
		FROM recipients
		WHERE campaign_id=$1
		ORDER BY id
	`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rec model.Recipient
		if err := rows.Scan(&rec.ID, &rec.CampaignID, &rec.CustomerID, &rec.CustomerName,
			&rec.MobileNo, &rec.Status, &rec.ErrorMessage, &rec.SentAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *CampaignRepository) UpdateRecipientStatus(recipientID int, status model.RecipientStatus, errorMessage string) error {
	if status == model.RecipientSent {
		query := `UPDATE recipients SET status=$1, error_message='', sent_at=NOW() WHERE id=$2`
		_, err := r.DB.Exec(query, status, recipientID)
		return err
	}
	query := `UPDATE recipients SET status=$1, error_message=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, errorMessage, recipientID)
	return err
}

func (r *CampaignRepository) ResetFailedRecipients(campaignID int) (int, error) {
	query := `
		UPDATE recipients SET status=$1, error_message=''
		WHERE campaign_id=$2 AND status=$3
	`
	result, err := r.DB.Exec(query, model.RecipientPending, campaignID, model.RecipientFailed)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *CampaignRepository) Stats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM recipients WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0, "pending": 0, "sent": 0, "failed": 0}
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

func (r *CampaignRepository) CreateSendLog(l *model.SendLog) error {
	query := `
		INSERT INTO campaign_send_logs (campaign_id, customer_id, mobile_no, message, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`
	return r.DB.QueryRow(query, l.CampaignID, l.CustomerID, l.MobileNo, l.Message,
		l.Status, l.ErrorMessage).Scan(&l.ID, &l.CreatedAt)
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
