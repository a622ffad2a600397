package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/gateway"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

// RecipientResolver resolves a campaign filter into recipients.
type RecipientResolver interface {
	Resolve(filter model.FilterSpec) ([]model.Recipient, error)
}

// SendQueue hands a campaign off for out-of-process delivery.
type SendQueue interface {
	PublishCampaign(campaignID int) error
}

// Observer receives dispatch progress. Sent-so-far only increases;
// Completed carries the authoritative final counts.
type Observer interface {
	Progress(campaignID, sentCount, failedCount, total int)
	Completed(campaignID, successCount, failedCount int)
}

type NopObserver struct{}

func (NopObserver) Progress(campaignID, sentCount, failedCount, total int) {}
func (NopObserver) Completed(campaignID, successCount, failedCount int)    {}

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Resolver     RecipientResolver
	Sender       gateway.Sender
	// Queue may be nil, in which case Send processes the campaign in
	// process instead of handing it to a worker.
	Queue    SendQueue
	Observer Observer

	// inFlight guards against two concurrent Process calls for the same
	// campaign inside one process; the DB status claim guards across
	// processes.
	inFlight sync.Map
}

type CampaignDetails struct {
	*model.Campaign
	Stats map[string]int `json:"stats"`
}

func (s *CampaignService) CreateCampaign(name string, filter model.FilterSpec, message string) (*model.Campaign, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}
	if filter.Kind == model.FilterCustom {
		if _, err := ParseConditions(filter.Custom); err != nil {
			return nil, err
		}
	}

	c := &model.Campaign{
		Name:         name,
		FilterBy:     filter.Kind,
		FilterValue:  filter.Value,
		CustomFilter: filter.Custom,
		Message:      message,
		Status:       model.CampaignDraft,
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadRecipients resolves the campaign filter and replaces the recipient
// list. Only draft campaigns can be repopulated; once submitted the list
// is locked.
func (s *CampaignService) LoadRecipients(campaignID int) (*model.Campaign, []model.Recipient, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, nil, err
	}
	if campaign.Status != model.CampaignDraft {
		return nil, nil, &appErrors.ErrInvalidStatus{CampaignID: campaignID, Status: string(campaign.Status), Operation: "load recipients for"}
	}

	recipients, err := s.Resolver.Resolve(campaign.FilterSpec())
	if err != nil {
		// Campaign stays draft on resolution failure.
		return nil, nil, err
	}

	if err := s.CampaignRepo.ReplaceRecipients(campaignID, recipients); err != nil {
		return nil, nil, err
	}
	campaign.TotalRecipients = len(recipients)
	return campaign, recipients, nil
}

// Send locks a draft campaign and hands it off for delivery.
func (s *CampaignService) Send(campaignID int) error {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}

	if campaign.TotalRecipients == 0 && campaign.Status == model.CampaignDraft {
		if _, _, err := s.LoadRecipients(campaignID); err != nil {
			return err
		}
	}

	queued, err := s.CampaignRepo.MarkQueued(campaignID)
	if err != nil {
		return err
	}
	if !queued {
		if campaign.Status == model.CampaignQueued || campaign.Status == model.CampaignSending {
			return appErrors.NewSendInProgress(campaignID)
		}
		return &appErrors.ErrInvalidStatus{CampaignID: campaignID, Status: string(campaign.Status), Operation: "send"}
	}

	return s.dispatch(campaignID)
}

// RetryFailed resets failed recipients to pending and requeues the
// campaign. Recipients already sent are untouched.
func (s *CampaignService) RetryFailed(campaignID int) (int, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return 0, err
	}
	if campaign.Status != model.CampaignFailed {
		return 0, &appErrors.ErrInvalidStatus{CampaignID: campaignID, Status: string(campaign.Status), Operation: "retry"}
	}

	reset, err := s.CampaignRepo.ResetFailedRecipients(campaignID)
	if err != nil {
		return 0, err
	}
	if reset == 0 {
		return 0, fmt.Errorf("no failed recipients to retry on campaign %d", campaignID)
	}

	requeued, err := s.CampaignRepo.RequeueForRetry(campaignID)
	if err != nil {
		return 0, err
	}
	if !requeued {
		return 0, appErrors.NewSendInProgress(campaignID)
	}

	return reset, s.dispatch(campaignID)
}

func (s *CampaignService) dispatch(campaignID int) error {
	if s.Queue != nil {
		return s.Queue.PublishCampaign(campaignID)
	}
	go func() {
		if err := s.Process(context.Background(), campaignID); err != nil {
			log.WithField("campaign_id", campaignID).WithError(err).Error("campaign processing failed")
		}
	}()
	return nil
}

// Process delivers a queued campaign: recipients are attempted in resolve
// order, one failure never aborts the rest, and the terminal status is
// written together with the final counts.
func (s *CampaignService) Process(ctx context.Context, campaignID int) error {
	if _, loaded := s.inFlight.LoadOrStore(campaignID, struct{}{}); loaded {
		return appErrors.NewSendInProgress(campaignID)
	}
	defer s.inFlight.Delete(campaignID)

	claimed, err := s.CampaignRepo.ClaimForSending(campaignID)
	if err != nil {
		return err
	}
	if !claimed {
		return appErrors.NewSendInProgress(campaignID)
	}

	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}

	recipients, err := s.CampaignRepo.ListRecipients(campaignID)
	if err != nil {
		return err
	}

	observer := s.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	successCount := 0
	failedCount := 0
	total := len(recipients)

	for _, recipient := range recipients {
		// Retries only touch pending recipients; prior results stand.
		if recipient.Status == model.RecipientSent {
			successCount++
			continue
		}
		if recipient.Status == model.RecipientFailed {
			failedCount++
			continue
		}

		message := RenderTemplate(campaign.Message, map[string]string{
			"customer_name": recipient.CustomerName,
			"mobile_no":     recipient.MobileNo,
		})

		sendErr := s.Sender.Send(ctx, recipient.MobileNo, message)
		logEntry := &model.SendLog{
			CampaignID: campaignID,
			CustomerID: recipient.CustomerID,
			MobileNo:   recipient.MobileNo,
			Message:    message,
		}

		if sendErr != nil {
			failedCount++
			logEntry.Status = model.RecipientFailed
			logEntry.ErrorMessage = sendErr.Error()
			if err := s.CampaignRepo.UpdateRecipientStatus(recipient.ID, model.RecipientFailed, sendErr.Error()); err != nil {
				log.WithField("recipient_id", recipient.ID).WithError(err).Error("failed to update recipient status")
			}
		} else {
			successCount++
			logEntry.Status = model.RecipientSent
			if err := s.CampaignRepo.UpdateRecipientStatus(recipient.ID, model.RecipientSent, ""); err != nil {
				log.WithField("recipient_id", recipient.ID).WithError(err).Error("failed to update recipient status")
			}
		}

		if err := s.CampaignRepo.CreateSendLog(logEntry); err != nil {
			log.WithField("campaign_id", campaignID).WithError(err).Error("failed to write send log")
		}

		observer.Progress(campaignID, successCount, failedCount, total)
	}

	status := model.CampaignCompleted
	if failedCount > 0 {
		status = model.CampaignFailed
	}
	if err := s.CampaignRepo.FinalizeCounts(campaignID, status, successCount, failedCount); err != nil {
		return err
	}

	observer.Completed(campaignID, successCount, failedCount)
	log.WithFields(log.Fields{
		"campaign_id": campaignID,
		"success":     successCount,
		"failed":      failedCount,
		"status":      status,
	}).Info("campaign processed")
	return nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.List(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetails(campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.CampaignRepo.Stats(campaignID)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}
