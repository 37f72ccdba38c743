package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/placements/internal/domain"
)

// OffenderService answers case-level visibility questions via the upstream
// directory
type OffenderService struct {
	staffClient domain.StaffDirectoryClient
	logger      *slog.Logger
}

// NewOffenderService creates a new offender service
func NewOffenderService(staffClient domain.StaffDirectoryClient, logger *slog.Logger) *OffenderService {
	if logger == nil {
		logger = slog.Default()
	}

	return &OffenderService{
		staffClient: staffClient,
		logger:      logger,
	}
}

// IsLimitedAccessOffender reports whether the case is flagged for restricted
// staff visibility
func (s *OffenderService) IsLimitedAccessOffender(ctx context.Context, crn string) (bool, error) {
	access, err := s.staffClient.GetCaseAccess(ctx, crn)
	if err != nil {
		return false, fmt.Errorf("case access check for %s: %w", crn, err)
	}

	return access.LimitedAccessOffender, nil
}
