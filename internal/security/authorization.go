package security

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/placements/internal/domain"
)

// APIAction identifies a management operation exposed over the API
type APIAction string

const (
	ActionManageUserRoles  APIAction = "manage_user_roles"
	ActionUpdateUser       APIAction = "update_user"
	ActionDeleteUser       APIAction = "delete_user"
	ActionSearchUsers      APIAction = "search_users"
	ActionListAllocatables APIAction = "list_allocatables"
)

// actionRoles maps each management action to the roles allowed to perform it
var actionRoles = map[APIAction][]domain.Role{
	ActionManageUserRoles:  {domain.RoleCas1Manager, domain.RoleCas1WorkflowManager},
	ActionUpdateUser:       {domain.RoleCas1Manager, domain.RoleCas1WorkflowManager},
	ActionDeleteUser:       {domain.RoleCas1Manager},
	ActionSearchUsers:      {domain.RoleCas1Manager, domain.RoleCas1WorkflowManager, domain.RoleCas1Matcher},
	ActionListAllocatables: {domain.RoleCas1Manager, domain.RoleCas1WorkflowManager, domain.RoleCas1Matcher},
}

// AuthorizationService handles authorization checks for management endpoints
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

// ValidateAction checks whether the user may perform the management action
func (a *AuthorizationService) ValidateAction(user *domain.User, action APIAction) error {
	roles, ok := actionRoles[action]
	if !ok {
		return fmt.Errorf("unknown action: %s", action)
	}

	if !user.HasAnyRole(roles...) {
		a.logger.Warn("action denied",
			slog.String("username", user.DeliusUsername),
			slog.String("action", string(action)),
		)
		return fmt.Errorf("access denied: %s requires one of %v", action, roles)
	}

	return nil
}
