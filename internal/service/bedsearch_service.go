package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/observability/metrics"
)

// Validation message constants. Characteristic messages carry the offending
// property name as a prefix.
const (
	msgDoesNotExist  = "doesNotExist"
	msgScopeInvalid  = "scopeInvalid"
	msgMustBeAtLeast = "mustBeAtLeast1"
)

// BedSearchService validates and runs bed availability searches
type BedSearchService struct {
	bedSearchRepo      domain.BedSearchRepository
	postcodeRepo       domain.PostcodeDistrictRepository
	characteristicRepo domain.CharacteristicRepository
	logger             *slog.Logger
}

// NewBedSearchService creates a new bed search service
func NewBedSearchService(
	bedSearchRepo domain.BedSearchRepository,
	postcodeRepo domain.PostcodeDistrictRepository,
	characteristicRepo domain.CharacteristicRepository,
	logger *slog.Logger,
) *BedSearchService {
	if logger == nil {
		logger = slog.Default()
	}

	return &BedSearchService{
		bedSearchRepo:      bedSearchRepo,
		postcodeRepo:       postcodeRepo,
		characteristicRepo: characteristicRepo,
		logger:             logger,
	}
}

// FindApprovedPremisesBeds searches for available approved-premises beds
// around a postcode district. The caller must hold the matcher role; that
// check happens before any other collaborator is touched. Field validation
// failures accumulate so one response reports every offending field.
func (s *BedSearchService) FindApprovedPremisesBeds(
	user *domain.User,
	postcodeDistrictOutcode string,
	maxDistanceMiles int,
	startDate time.Time,
	durationInWeeks int,
	requiredCharacteristics []string,
) (*domain.ApBedSearchResult, error) {
	if !user.HasRole(domain.RoleCas1Matcher) {
		metrics.ObserveBedSearch(string(domain.ServiceApprovedPremises), "unauthorised")
		return &domain.ApBedSearchResult{Kind: domain.BedSearchUnauthorised}, nil
	}

	fieldErrors := map[string]string{}

	if _, err := s.postcodeRepo.GetByOutcode(postcodeDistrictOutcode); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		fieldErrors["$.postcodeDistrictOutcode"] = msgDoesNotExist
	}

	characteristics, err := s.characteristicRepo.GetByPropertyNames(requiredCharacteristics)
	if err != nil {
		return nil, err
	}

	byPropertyName := map[string][]*domain.Characteristic{}
	for _, c := range characteristics {
		byPropertyName[c.PropertyName] = append(byPropertyName[c.PropertyName], c)
	}

	premisesCharacteristicIDs := []string{}
	roomCharacteristicIDs := []string{}

	for _, name := range requiredCharacteristics {
		matches := byPropertyName[name]
		if len(matches) != 1 {
			fieldErrors["$.requiredCharacteristics"] = name + " " + msgDoesNotExist
			continue
		}

		characteristic := matches[0]
		if !characteristic.MatchesServiceScope(domain.ServiceApprovedPremises) ||
			!(characteristic.MatchesModelScope(domain.ModelScopePremises) || characteristic.MatchesModelScope(domain.ModelScopeRoom)) {
			fieldErrors["$.requiredCharacteristics"] = name + " " + msgScopeInvalid
			continue
		}

		if characteristic.MatchesModelScope(domain.ModelScopePremises) {
			premisesCharacteristicIDs = append(premisesCharacteristicIDs, characteristic.ID)
		}
		if characteristic.MatchesModelScope(domain.ModelScopeRoom) {
			roomCharacteristicIDs = append(roomCharacteristicIDs, characteristic.ID)
		}
	}

	if durationInWeeks < 1 {
		fieldErrors["$.durationInWeeks"] = msgMustBeAtLeast
	}

	if maxDistanceMiles < 1 {
		fieldErrors["$.maxDistanceMiles"] = msgMustBeAtLeast
	}

	if len(fieldErrors) > 0 {
		metrics.ObserveBedSearch(string(domain.ServiceApprovedPremises), "invalid")
		return &domain.ApBedSearchResult{
			Kind:        domain.BedSearchFieldErrors,
			FieldErrors: fieldErrors,
		}, nil
	}

	rows, err := s.bedSearchRepo.FindApprovedPremisesBeds(domain.ApBedSearchParams{
		PostcodeOutcode:           postcodeDistrictOutcode,
		MaxDistanceMiles:          maxDistanceMiles,
		StartDate:                 startDate,
		DurationInWeeks:           durationInWeeks,
		PremisesCharacteristicIDs: premisesCharacteristicIDs,
		RoomCharacteristicIDs:     roomCharacteristicIDs,
	})
	if err != nil {
		metrics.ObserveBedSearch(string(domain.ServiceApprovedPremises), "error")
		return nil, err
	}

	s.logger.Debug("approved premises bed search complete",
		slog.String("username", user.DeliusUsername),
		slog.String("outcode", postcodeDistrictOutcode),
		slog.Int("results", len(rows)),
	)
	metrics.ObserveBedSearch(string(domain.ServiceApprovedPremises), "ok")

	return &domain.ApBedSearchResult{Kind: domain.BedSearchOK, Rows: rows}, nil
}

// FindTemporaryAccommodationBeds searches for available beds within the
// caller's own probation region and the given PDU. Any authenticated caller
// is permitted.
func (s *BedSearchService) FindTemporaryAccommodationBeds(
	user *domain.User,
	startDate time.Time,
	durationInDays int,
	probationDeliveryUnitName string,
) (*domain.TaBedSearchResult, error) {
	fieldErrors := map[string]string{}

	if durationInDays < 1 {
		fieldErrors["$.durationInDays"] = msgMustBeAtLeast
	}

	if len(fieldErrors) > 0 {
		metrics.ObserveBedSearch(string(domain.ServiceTemporaryAccommodation), "invalid")
		return &domain.TaBedSearchResult{
			Kind:        domain.BedSearchFieldErrors,
			FieldErrors: fieldErrors,
		}, nil
	}

	rows, err := s.bedSearchRepo.FindTemporaryAccommodationBeds(domain.TaBedSearchParams{
		ProbationRegionID:         user.ProbationRegion.ID,
		ProbationDeliveryUnitName: probationDeliveryUnitName,
		StartDate:                 startDate,
		DurationInDays:            durationInDays,
	})
	if err != nil {
		metrics.ObserveBedSearch(string(domain.ServiceTemporaryAccommodation), "error")
		return nil, err
	}

	metrics.ObserveBedSearch(string(domain.ServiceTemporaryAccommodation), "ok")

	return &domain.TaBedSearchResult{Kind: domain.BedSearchOK, Rows: rows}, nil
}
