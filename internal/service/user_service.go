package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/observability/metrics"
	"github.com/yourorg/placements/internal/security/auth"
)

// ErrNoPrincipal is returned when a request-scoped operation runs without an
// authenticated caller.
var ErrNoPrincipal = errors.New("no principal on request")

// noRolesVersion is the fingerprint reported for a user with no roles.
const noRolesVersion uint64 = 0x517cc1b727220a95

// UserService resolves local user records from the upstream staff directory
// and manages their roles, qualifications and region data
type UserService struct {
	userRepo          domain.UserRepository
	roleRepo          domain.RoleRepository
	qualificationRepo domain.QualificationRepository
	regionRepo        domain.ProbationRegionRepository
	pduRepo           domain.ProbationDeliveryUnitRepository
	staffClient       domain.StaffDirectoryClient
	apAreaService     *ApAreaService
	offenderService   *OffenderService
	logger            *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo domain.UserRepository,
	roleRepo domain.RoleRepository,
	qualificationRepo domain.QualificationRepository,
	regionRepo domain.ProbationRegionRepository,
	pduRepo domain.ProbationDeliveryUnitRepository,
	staffClient domain.StaffDirectoryClient,
	apAreaService *ApAreaService,
	offenderService *OffenderService,
	logger *slog.Logger,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserService{
		userRepo:          userRepo,
		roleRepo:          roleRepo,
		qualificationRepo: qualificationRepo,
		regionRepo:        regionRepo,
		pduRepo:           pduRepo,
		staffClient:       staffClient,
		apAreaService:     apAreaService,
		offenderService:   offenderService,
		logger:            logger,
	}
}

// GetUserByID loads a user by internal id.
func (s *UserService) GetUserByID(id string) (*domain.User, error) {
	return s.userRepo.GetByID(id)
}

// GetExistingUserOrCreate returns the local user for the username, creating
// one from the staff directory on first sight. An upstream 404 maps to
// GetUserStaffRecordNotFound; any other upstream failure is returned as an
// error.
func (s *UserService) GetExistingUserOrCreate(ctx context.Context, username string) (*domain.GetUserResult, error) {
	existing, err := s.userRepo.GetByDeliusUsername(username)
	if err == nil {
		return &domain.GetUserResult{Kind: domain.GetUserOK, User: existing, CreatedOnGet: false}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	staff, err := s.staffClient.GetStaffDetail(ctx, username)
	if err != nil {
		if domain.IsStaffRecordNotFound(err) {
			metrics.ObserveUserResolution("staff_record_not_found")
			return &domain.GetUserResult{Kind: domain.GetUserStaffRecordNotFound}, nil
		}
		return nil, err
	}

	region, err := s.regionRepo.GetByDeliusCode(staff.ProbationAreaCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown probation area code %q for user %s", staff.ProbationAreaCode, username)
		}
		return nil, err
	}

	apArea, err := s.apAreaService.DetermineApArea(region, staff.TeamCodes(), username)
	if err != nil {
		return nil, err
	}

	// Create uses the first team in upstream order, unlike the update path
	// which picks the latest active team with a known borough mapping.
	pdu, err := s.pduForFirstTeam(staff)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:              uuid.NewString(),
		DeliusUsername:  username,
		Name:            staff.Name(),
		Email:           staff.Email,
		Telephone:       staff.Telephone,
		StaffIdentifier: staff.StaffIdentifier,
		StaffCode:       staff.StaffCode,
		ProbationRegion: region,
		PDU:             pdu,
		ApArea:          apArea,
		TeamCodes:       staff.TeamCodes(),
		Roles:           []domain.RoleAssignment{},
		Qualifications:  []domain.QualificationAssignment{},
		IsActive:        true,
		CreatedAt:       time.Now(),
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.logger.Info("created user from staff directory",
		slog.String("username", username),
		slog.String("region", region.Name),
	)
	metrics.ObserveUserResolution("created")

	return &domain.GetUserResult{Kind: domain.GetUserOK, User: user, CreatedOnGet: true}, nil
}

// GetExistingUserOrCreateOrError resolves a user and converts the
// staff-record-not-found outcome into an error.
//
// Deprecated: callers should branch on GetExistingUserOrCreate's result
// instead.
func (s *UserService) GetExistingUserOrCreateOrError(ctx context.Context, username string) (*domain.User, error) {
	result, err := s.GetExistingUserOrCreate(ctx, username)
	if err != nil {
		return nil, err
	}

	switch result.Kind {
	case domain.GetUserOK:
		return result.User, nil
	case domain.GetUserStaffRecordNotFound:
		return nil, fmt.Errorf("staff record for %s: %w", username, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("unexpected user resolution outcome %d", result.Kind)
	}
}

// GetUserForRequest resolves the calling principal's user, creating it if
// needed. When acting for the temporary-accommodation service a caller with
// no role in that service is given the referrer role.
func (s *UserService) GetUserForRequest(ctx context.Context) (*domain.User, error) {
	username := auth.UsernameFromContext(ctx)
	if username == "" {
		return nil, ErrNoPrincipal
	}

	user, err := s.GetExistingUserOrCreateOrError(ctx, username)
	if err != nil {
		return nil, err
	}

	if auth.ServiceNameFromContext(ctx) == domain.ServiceTemporaryAccommodation &&
		!user.HasAnyRole(domain.RolesForService(domain.ServiceTemporaryAccommodation)...) {
		if err := s.AddRoleToUser(user, domain.RoleCas3Referrer); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// GetUserForRequestOrNil behaves like GetUserForRequest but reports an
// absent principal as a nil user rather than an error.
func (s *UserService) GetUserForRequestOrNil(ctx context.Context) (*domain.User, error) {
	if auth.UsernameFromContext(ctx) == "" {
		return nil, nil
	}
	return s.GetUserForRequest(ctx)
}

// GetUserForRequestVersionInfo returns the caller's user id together with a
// fingerprint over their role set, or nil when there is no principal.
func (s *UserService) GetUserForRequestVersionInfo(ctx context.Context) (*domain.UserVersionInfo, error) {
	if auth.UsernameFromContext(ctx) == "" {
		return nil, nil
	}

	user, err := s.GetUserForRequest(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.UserVersionInfo{
		UserID:  user.ID,
		Version: roleSetVersion(user.RoleNames()),
	}, nil
}

// roleSetVersion computes an order-independent, duplicate-insensitive
// fingerprint over role names. Two equal sets always hash equal; the empty
// set yields a fixed sentinel.
func roleSetVersion(roleNames []string) uint64 {
	distinct := map[string]struct{}{}
	for _, name := range roleNames {
		if name == "" {
			continue
		}
		distinct[name] = struct{}{}
	}

	if len(distinct) == 0 {
		return noRolesVersion
	}

	var version uint64
	for name := range distinct {
		h := fnv.New64a()
		h.Write([]byte(name))
		version ^= h.Sum64()
	}

	return version
}

// UpdateUserPduByID re-resolves the user's PDU from their current staff
// record, preferring the most recently started active team whose borough
// maps to a known PDU.
func (s *UserService) UpdateUserPduByID(ctx context.Context, id string) error {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("load user %s: %w", id, err)
	}

	staff, err := s.staffClient.GetStaffDetail(ctx, user.DeliusUsername)
	if err != nil {
		return fmt.Errorf("staff detail for %s: %w", user.DeliusUsername, err)
	}

	now := time.Now()
	activeTeams := []domain.StaffTeam{}
	for _, team := range staff.Teams {
		if team.Active(now) {
			activeTeams = append(activeTeams, team)
		}
	}
	sort.SliceStable(activeTeams, func(i, j int) bool {
		return activeTeams[i].StartDate.After(activeTeams[j].StartDate)
	})

	for _, team := range activeTeams {
		pdu, err := s.pduRepo.GetByDeliusCode(team.BoroughCode)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		user.PDU = pdu
		if err := s.userRepo.Update(user); err != nil {
			return err
		}

		s.logger.Info("updated user pdu",
			slog.String("username", user.DeliusUsername),
			slog.String("pdu", pdu.Name),
			slog.String("borough_code", team.BoroughCode),
		)
		return nil
	}

	attempted := make([]string, 0, len(activeTeams))
	for _, team := range activeTeams {
		attempted = append(attempted, fmt.Sprintf("%s (borough %s)", team.Code, team.BoroughCode))
	}

	return fmt.Errorf(
		"could not determine PDU for user %s: no mapped borough among %d active teams: %s",
		user.DeliusUsername, len(activeTeams), strings.Join(attempted, ", "),
	)
}

// UpdateUser refreshes a user's fields from their staff record. A missing
// local user is NotFound; a missing staff record maps through as an outcome
// rather than an error.
func (s *UserService) UpdateUser(ctx context.Context, id string, serviceName domain.ServiceName) (*domain.UpdateUserResult, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.UpdateUserResult{Kind: domain.UpdateUserNotFound}, nil
		}
		return nil, err
	}

	staff, err := s.staffClient.GetStaffDetail(ctx, user.DeliusUsername)
	if err != nil {
		if domain.IsStaffRecordNotFound(err) {
			return &domain.UpdateUserResult{Kind: domain.UpdateUserStaffRecordNotFound}, nil
		}
		return nil, err
	}

	region, err := s.regionRepo.GetByDeliusCode(staff.ProbationAreaCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown probation area code %q for user %s", staff.ProbationAreaCode, user.DeliusUsername)
		}
		return nil, err
	}

	pdu, err := s.pduForFirstTeam(staff)
	if err != nil {
		return nil, err
	}

	user.Name = staff.Name()
	user.Email = staff.Email
	user.Telephone = staff.Telephone
	user.StaffIdentifier = staff.StaffIdentifier
	user.StaffCode = staff.StaffCode
	user.TeamCodes = staff.TeamCodes()
	user.ProbationRegion = region
	user.PDU = pdu

	if serviceName == domain.ServiceApprovedPremises {
		apArea, err := s.apAreaService.DetermineApArea(region, staff.TeamCodes(), user.DeliusUsername)
		if err != nil {
			return nil, err
		}
		user.ApArea = apArea
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return &domain.UpdateUserResult{Kind: domain.UpdateUserOK, User: user}, nil
}

// pduForFirstTeam resolves the PDU of the first team in upstream order. An
// unmapped borough leaves the PDU unset rather than failing.
func (s *UserService) pduForFirstTeam(staff *domain.StaffDetail) (*domain.ProbationDeliveryUnit, error) {
	if len(staff.Teams) == 0 {
		return nil, nil
	}

	pdu, err := s.pduRepo.GetByDeliusCode(staff.Teams[0].BoroughCode)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return pdu, nil
}

// AddRoleToUser grants a role, skipping the store entirely when the user
// already holds it.
func (s *UserService) AddRoleToUser(user *domain.User, role domain.Role) error {
	if user.HasRole(role) {
		return nil
	}

	if err := s.roleRepo.AddRoleToUser(user.ID, role); err != nil {
		return err
	}

	user.Roles = append(user.Roles, domain.RoleAssignment{UserID: user.ID, Role: role})
	return nil
}

// AddQualificationToUser grants a qualification, skipping the store when the
// user already holds it.
func (s *UserService) AddQualificationToUser(user *domain.User, qualification domain.Qualification) error {
	if user.HasQualification(qualification) {
		return nil
	}

	if err := s.qualificationRepo.AddQualificationToUser(user.ID, qualification); err != nil {
		return err
	}

	user.Qualifications = append(user.Qualifications, domain.QualificationAssignment{
		UserID:        user.ID,
		Qualification: qualification,
	})
	return nil
}

// UpdateRolesAndQualifications replaces the user's roles for the given
// service and all their qualifications. Duplicate requested values collapse
// to a single stored row.
func (s *UserService) UpdateRolesAndQualifications(
	user *domain.User,
	serviceName domain.ServiceName,
	roles []domain.Role,
	qualifications []domain.Qualification,
) (*domain.User, error) {
	if err := s.roleRepo.DeleteServiceRolesForUser(user.ID, serviceName); err != nil {
		return nil, err
	}

	serviceRoles := map[domain.Role]struct{}{}
	for _, role := range domain.RolesForService(serviceName) {
		serviceRoles[role] = struct{}{}
	}

	kept := []domain.RoleAssignment{}
	for _, ra := range user.Roles {
		if _, ok := serviceRoles[ra.Role]; !ok {
			kept = append(kept, ra)
		}
	}
	user.Roles = kept

	if err := s.qualificationRepo.DeleteAllForUser(user.ID); err != nil {
		return nil, err
	}
	user.Qualifications = []domain.QualificationAssignment{}

	for _, role := range roles {
		if err := s.AddRoleToUser(user, role); err != nil {
			return nil, err
		}
	}

	for _, qualification := range qualifications {
		if err := s.AddQualificationToUser(user, qualification); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// GetAllocatableUsersForAllocationType returns active users who may be
// allocated the given permission's work for the case. The LAO flag is
// checked once per call, not per candidate.
func (s *UserService) GetAllocatableUsersForAllocationType(
	ctx context.Context,
	crn string,
	excludedQualifications []domain.Qualification,
	permission domain.AllocationPermission,
) ([]*domain.User, error) {
	roles := domain.RolesWithPermission(permission)
	if len(roles) == 0 {
		return nil, fmt.Errorf("no roles hold permission %q", permission)
	}

	candidates, err := s.userRepo.GetActiveUsersWithAnyRole(roles)
	if err != nil {
		return nil, err
	}

	isLao, err := s.offenderService.IsLimitedAccessOffender(ctx, crn)
	if err != nil {
		return nil, err
	}

	allocatable := []*domain.User{}
	for _, candidate := range candidates {
		excluded := false
		for _, qualification := range excludedQualifications {
			if candidate.HasQualification(qualification) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}

		if isLao && !candidate.HasQualification(domain.QualificationLao) {
			continue
		}

		allocatable = append(allocatable, candidate)
	}

	return allocatable, nil
}

// RemoveRoleFromUser deletes every stored occurrence of the role. Holding no
// matching role is a no-op with no store call.
func (s *UserService) RemoveRoleFromUser(user *domain.User, role domain.Role) error {
	if !user.HasRole(role) {
		return nil
	}

	if err := s.roleRepo.DeleteAllForUserAndRole(user.ID, role); err != nil {
		return err
	}

	kept := []domain.RoleAssignment{}
	for _, ra := range user.Roles {
		if ra.Role != role {
			kept = append(kept, ra)
		}
	}
	user.Roles = kept

	return nil
}

// DeleteUser soft-deletes by clearing the active flag; no rows are removed.
func (s *UserService) DeleteUser(id string) error {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("load user %s: %w", id, err)
	}

	user.IsActive = false
	if err := s.userRepo.Update(user); err != nil {
		return err
	}

	s.logger.Info("deactivated user", slog.String("username", user.DeliusUsername))
	return nil
}

// GetUsersByPartialName finds active users whose name contains the fragment,
// case-insensitively. An empty fragment returns no users.
func (s *UserService) GetUsersByPartialName(fragment string) ([]*domain.User, error) {
	if strings.TrimSpace(fragment) == "" {
		return []*domain.User{}, nil
	}

	return s.userRepo.GetByPartialName(fragment)
}
