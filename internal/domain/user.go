package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ServiceName identifies which placement service a request is acting for.
type ServiceName string

const (
	ServiceApprovedPremises       ServiceName = "approved-premises"
	ServiceTemporaryAccommodation ServiceName = "temporary-accommodation"
)

// Role is a service-scoped role a user may hold
type Role string

const (
	RoleCas1Assessor        Role = "CAS1_ASSESSOR"
	RoleCas1Matcher         Role = "CAS1_MATCHER"
	RoleCas1Manager         Role = "CAS1_MANAGER"
	RoleCas1WorkflowManager Role = "CAS1_WORKFLOW_MANAGER"
	RoleCas1AppealsManager  Role = "CAS1_APPEALS_MANAGER"
	RoleCas1ReportViewer    Role = "CAS1_REPORT_VIEWER"

	RoleCas3Referrer Role = "CAS3_REFERRER"
	RoleCas3Assessor Role = "CAS3_ASSESSOR"
	RoleCas3Reporter Role = "CAS3_REPORTER"
)

var rolesByService = map[ServiceName][]Role{
	ServiceApprovedPremises: {
		RoleCas1Assessor,
		RoleCas1Matcher,
		RoleCas1Manager,
		RoleCas1WorkflowManager,
		RoleCas1AppealsManager,
		RoleCas1ReportViewer,
	},
	ServiceTemporaryAccommodation: {
		RoleCas3Referrer,
		RoleCas3Assessor,
		RoleCas3Reporter,
	},
}

// RolesForService returns every role belonging to the given service.
func RolesForService(service ServiceName) []Role {
	return rolesByService[service]
}

// Qualification restricts which cases a user may be allocated
type Qualification string

const (
	QualificationWomens    Qualification = "WOMENS"
	QualificationPipe      Qualification = "PIPE"
	QualificationEsap      Qualification = "ESAP"
	QualificationEmergency Qualification = "EMERGENCY"
	QualificationLao       Qualification = "LAO"
)

// AllocationPermission names an action a user may be allocated work for.
type AllocationPermission string

const (
	PermissionProcessAppeal              AllocationPermission = "process_appeal"
	PermissionAllocateAssessment         AllocationPermission = "allocate_assessment"
	PermissionAllocatePlacementRequest   AllocationPermission = "allocate_placement_request"
	PermissionAllocateAppealedAssessment AllocationPermission = "allocate_appealed_assessment"
)

var rolesByPermission = map[AllocationPermission][]Role{
	PermissionProcessAppeal:              {RoleCas1Assessor, RoleCas1AppealsManager},
	PermissionAllocateAssessment:         {RoleCas1Assessor},
	PermissionAllocatePlacementRequest:   {RoleCas1Matcher},
	PermissionAllocateAppealedAssessment: {RoleCas1AppealsManager},
}

// RolesWithPermission returns the roles authorized to hold the permission.
func RolesWithPermission(permission AllocationPermission) []Role {
	return rolesByPermission[permission]
}

// RoleAssignment is one (user, role) row. Storage tolerates duplicates;
// callers collapse them.
type RoleAssignment struct {
	ID     string
	UserID string
	Role   Role
}

// QualificationAssignment is one (user, qualification) row.
type QualificationAssignment struct {
	ID            string
	UserID        string
	Qualification Qualification
}

// User is a local record for a member of probation staff, resolved from the
// upstream staff directory on first sight.
type User struct {
	ID              string // UUID
	DeliusUsername  string // Unique upstream username
	Name            string
	Email           string
	Telephone       string
	StaffIdentifier int64
	StaffCode       string
	ProbationRegion *ProbationRegion // Always set once created
	PDU             *ProbationDeliveryUnit
	ApArea          *ApArea // Approved-premises service only
	TeamCodes       []string
	Roles           []RoleAssignment
	Qualifications  []QualificationAssignment
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasRole reports whether the user holds the role at least once.
func (u *User) HasRole(role Role) bool {
	for _, ra := range u.Roles {
		if ra.Role == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of the roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// HasQualification reports whether the user holds the qualification.
func (u *User) HasQualification(q Qualification) bool {
	for _, qa := range u.Qualifications {
		if qa.Qualification == q {
			return true
		}
	}
	return false
}

// RoleNames returns the user's role names, duplicates included.
func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, ra := range u.Roles {
		out = append(out, string(ra.Role))
	}
	return out
}

// UserRepository defines data access for users. Loaded users carry their
// role and qualification assignments.
type UserRepository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	GetByDeliusUsername(username string) (*User, error)
	Update(user *User) error
	GetByPartialName(name string) ([]*User, error)
	GetActiveUsersWithAnyRole(roles []Role) ([]*User, error)
	// GetActiveUsersUpdatedBefore returns up to limit active users whose last
	// refresh from the staff directory is older than cutoff.
	GetActiveUsersUpdatedBefore(cutoff time.Time, limit int) ([]*User, error)
}

// RoleRepository defines data access for role assignments.
type RoleRepository interface {
	AddRoleToUser(userID string, role Role) error
	// DeleteAllForUserAndRole removes every row matching the role, however
	// many duplicates exist.
	DeleteAllForUserAndRole(userID string, role Role) error
	DeleteServiceRolesForUser(userID string, service ServiceName) error
}

// QualificationRepository defines data access for qualification assignments.
type QualificationRepository interface {
	AddQualificationToUser(userID string, qualification Qualification) error
	DeleteAllForUser(userID string) error
}
