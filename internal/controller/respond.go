package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps service errors onto HTTP statuses so handlers
// do not each repeat the errors.As ladder.
func writeServiceError(w http.ResponseWriter, err error) {
	var campaignNotFound *appErrors.ErrCampaignNotFound
	var ruleNotFound *appErrors.ErrRuleNotFound
	var customerNotFound *appErrors.ErrCustomerNotFound
	var sendInProgress *appErrors.ErrSendInProgress
	var invalidStatus *appErrors.ErrInvalidStatus
	var malformed *appErrors.ErrMalformedPredicate

	switch {
	case errors.As(err, &campaignNotFound),
		errors.As(err, &ruleNotFound),
		errors.As(err, &customerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &sendInProgress), errors.As(err, &invalidStatus):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &malformed):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
