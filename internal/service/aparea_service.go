package service

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/placements/internal/domain"
)

// ApAreaService determines the Approved Premises area for a user. The
// determination is a pure function of the user's region and team codes:
// membership of a configured override team (national teams such as the
// central referral unit) promotes the user to that team's area, otherwise
// the user belongs to their region's default area.
type ApAreaService struct {
	apAreaRepo domain.ApAreaRepository
	// overrides maps a team code to the AP area code its members belong to
	overrides map[string]string
	logger    *slog.Logger
}

// NewApAreaService creates a new AP area service
func NewApAreaService(apAreaRepo domain.ApAreaRepository, overrides map[string]string, logger *slog.Logger) *ApAreaService {
	if logger == nil {
		logger = slog.Default()
	}
	if overrides == nil {
		overrides = map[string]string{}
	}

	return &ApAreaService{
		apAreaRepo: apAreaRepo,
		overrides:  overrides,
		logger:     logger,
	}
}

// DetermineApArea resolves the AP area for a user with the given region and
// team memberships
func (s *ApAreaService) DetermineApArea(region *domain.ProbationRegion, teamCodes []string, username string) (*domain.ApArea, error) {
	for _, teamCode := range teamCodes {
		areaCode, ok := s.overrides[teamCode]
		if !ok {
			continue
		}

		area, err := s.apAreaRepo.GetByCode(areaCode)
		if err != nil {
			return nil, fmt.Errorf("ap area %q for override team %q (user %s): %w", areaCode, teamCode, username, err)
		}

		s.logger.Debug("ap area determined from team override",
			slog.String("username", username),
			slog.String("team_code", teamCode),
			slog.String("ap_area", area.Code),
		)
		return area, nil
	}

	area, err := s.apAreaRepo.GetByID(region.ApAreaID)
	if err != nil {
		return nil, fmt.Errorf("ap area for region %q (user %s): %w", region.Name, username, err)
	}

	return area, nil
}
