package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name         string `json:"name"`
		FilterBy     string `json:"filter_by"`
		FilterValue  string `json:"filter_value"`
		CustomFilter string `json:"custom_filter"`
		Message      string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	filter := model.FilterSpec{
		Kind:   model.FilterKind(body.FilterBy),
		Value:  body.FilterValue,
		Custom: body.CustomFilter,
	}

	campaign, err := c.CampaignService.CreateCampaign(body.Name, filter, body.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	details, err := c.CampaignService.GetCampaignDetails(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(details)
}

// LoadRecipients resolves the campaign filter and snapshots the
// recipient list. Repeatable while the campaign is still a draft.
func (c *CampaignController) LoadRecipients(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	campaign, recipients, err := c.CampaignService.LoadRecipients(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign_id":      campaign.ID,
		"total_recipients": campaign.TotalRecipients,
		"recipients":       recipients,
	})
}

func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	if err := c.CampaignService.Send(id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"campaign_id": id,
		"status":      model.CampaignQueued,
	})
}

// RetryCampaign re-attempts only the recipients that failed on the
// previous run.
func (c *CampaignController) RetryCampaign(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	reset, err := c.CampaignService.RetryFailed(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"campaign_id":       id,
		"recipients_queued": reset,
		"status":            model.CampaignQueued,
	})
}
