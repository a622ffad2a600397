package service

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
)

// ResolverService turns a campaign filter into the ordered recipient
// list. Resolution is read-only and repeatable: the same filter against
// the same directory snapshot yields the same recipients.
type ResolverService struct {
	CustomerRepo repository.CustomerRepositoryInterface
	// DefaultRegion is the ISO country code used to parse mobile
	// numbers stored without a country prefix.
	DefaultRegion string
}

func (s *ResolverService) Resolve(filter model.FilterSpec) ([]model.Recipient, error) {
	attrs, err := s.filterAttributes(filter)
	if err != nil {
		return nil, err
	}

	customers, err := s.CustomerRepo.ListByAttributes(attrs)
	if err != nil {
		return nil, appErrors.NewRecipientResolution(err)
	}

	recipients := []model.Recipient{}
	for _, customer := range customers {
		if !s.usableMobile(customer.MobileNo) {
			continue
		}
		recipients = append(recipients, model.Recipient{
			CustomerID:   customer.ID,
			CustomerName: customer.CustomerName,
			MobileNo:     strings.TrimSpace(customer.MobileNo),
			Status:       model.RecipientPending,
		})
	}
	return recipients, nil
}

func (s *ResolverService) filterAttributes(filter model.FilterSpec) (map[string]string, error) {
	switch filter.Kind {
	case model.FilterCustomerGroup, model.FilterTerritory, model.FilterGender,
		model.FilterReligion, model.FilterProfession:
		if filter.Value == "" {
			return nil, fmt.Errorf("filter %s requires a value", filter.Kind)
		}
		return map[string]string{string(filter.Kind): filter.Value}, nil
	case model.FilterCustom:
		pred, err := ParseConditions(filter.Custom)
		if err != nil {
			return nil, err
		}
		return pred, nil
	default:
		return nil, fmt.Errorf("unknown filter kind: %s", filter.Kind)
	}
}

func (s *ResolverService) usableMobile(mobileNo string) bool {
	mobileNo = strings.TrimSpace(mobileNo)
	if mobileNo == "" {
		return false
	}
	num, err := phonenumbers.Parse(mobileNo, s.DefaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}
