package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/yourorg/placements/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

const userSelectColumns = `
	u.id, u.delius_username, u.name, u.email, u.telephone,
	u.staff_identifier, u.staff_code, u.team_codes, u.is_active,
	u.created_at, u.updated_at,
	r.id, r.name, r.delius_code, r.ap_area_id,
	p.id, p.name, p.delius_code, p.probation_region_id,
	a.id, a.code, a.name
`

const userSelectJoins = `
	FROM users u
	JOIN probation_regions r ON r.id = u.probation_region_id
	LEFT JOIN probation_delivery_units p ON p.id = u.probation_delivery_unit_id
	LEFT JOIN ap_areas a ON a.id = u.ap_area_id
`

// Create inserts a new user with its region/PDU/area references
func (r *PostgresUserRepository) Create(user *domain.User) error {
	query := `
		INSERT INTO users (
			id, delius_username, name, email, telephone, staff_identifier,
			staff_code, team_codes, probation_region_id,
			probation_delivery_unit_id, ap_area_id, is_active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		user.ID,
		user.DeliusUsername,
		user.Name,
		nullString(user.Email),
		nullString(user.Telephone),
		user.StaffIdentifier,
		user.StaffCode,
		pq.Array(user.TeamCodes),
		user.ProbationRegion.ID,
		pduID(user.PDU),
		apAreaID(user.ApArea),
		user.IsActive,
		user.CreatedAt,
	).Scan(&user.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create user",
			slog.String("delius_username", user.DeliusUsername),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID, including role and qualification assignments
func (r *PostgresUserRepository) GetByID(id string) (*domain.User, error) {
	query := `SELECT ` + userSelectColumns + userSelectJoins + ` WHERE u.id = $1`
	return r.getOne(query, id)
}

// GetByDeliusUsername retrieves a user by their upstream username
func (r *PostgresUserRepository) GetByDeliusUsername(username string) (*domain.User, error) {
	query := `SELECT ` + userSelectColumns + userSelectJoins + ` WHERE UPPER(u.delius_username) = UPPER($1)`
	return r.getOne(query, username)
}

// Update persists every mutable field of the user
func (r *PostgresUserRepository) Update(user *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, telephone = $4, staff_identifier = $5,
			staff_code = $6, team_codes = $7, probation_region_id = $8,
			probation_delivery_unit_id = $9, ap_area_id = $10, is_active = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		user.ID,
		user.Name,
		nullString(user.Email),
		nullString(user.Telephone),
		user.StaffIdentifier,
		user.StaffCode,
		pq.Array(user.TeamCodes),
		user.ProbationRegion.ID,
		pduID(user.PDU),
		apAreaID(user.ApArea),
		user.IsActive,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
		}
		r.logger.Error("failed to update user",
			slog.String("id", user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// GetByPartialName retrieves active users whose name contains the fragment,
// case-insensitively. An empty fragment matches nothing.
func (r *PostgresUserRepository) GetByPartialName(name string) ([]*domain.User, error) {
	if name == "" {
		return []*domain.User{}, nil
	}

	query := `SELECT ` + userSelectColumns + userSelectJoins + `
		WHERE u.is_active = TRUE AND u.name ILIKE '%' || $1 || '%'
		ORDER BY u.name`

	return r.getMany(query, name)
}

// GetActiveUsersWithAnyRole retrieves active users holding at least one of
// the given roles
func (r *PostgresUserRepository) GetActiveUsersWithAnyRole(roles []domain.Role) ([]*domain.User, error) {
	if len(roles) == 0 {
		return []*domain.User{}, nil
	}

	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, string(role))
	}

	query := `SELECT DISTINCT ` + userSelectColumns + userSelectJoins + `
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.is_active = TRUE AND ur.role = ANY($1)
		ORDER BY u.name`

	return r.getMany(query, pq.Array(roleNames))
}

// GetActiveUsersUpdatedBefore retrieves active users last refreshed before
// the cutoff, oldest first
func (r *PostgresUserRepository) GetActiveUsersUpdatedBefore(cutoff time.Time, limit int) ([]*domain.User, error) {
	query := `SELECT ` + userSelectColumns + userSelectJoins + `
		WHERE u.is_active = TRUE AND u.updated_at < $1
		ORDER BY u.updated_at
		LIMIT $2`

	return r.getMany(query, cutoff, limit)
}

func (r *PostgresUserRepository) getOne(query string, args ...interface{}) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get user", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := r.loadAssignments(user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *PostgresUserRepository) getMany(query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	for _, user := range users {
		if err := r.loadAssignments(user); err != nil {
			return nil, err
		}
	}

	return users, nil
}

// loadAssignments attaches role and qualification rows, duplicates included
func (r *PostgresUserRepository) loadAssignments(user *domain.User) error {
	roleRows, err := r.db.Query(
		`SELECT id, user_id, role FROM user_roles WHERE user_id = $1 ORDER BY created_at`,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	defer roleRows.Close()

	user.Roles = []domain.RoleAssignment{}
	for roleRows.Next() {
		var ra domain.RoleAssignment
		if err := roleRows.Scan(&ra.ID, &ra.UserID, &ra.Role); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		user.Roles = append(user.Roles, ra)
	}
	if err := roleRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate roles: %w", err)
	}

	qualRows, err := r.db.Query(
		`SELECT id, user_id, qualification FROM user_qualifications WHERE user_id = $1 ORDER BY created_at`,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load qualifications: %w", err)
	}
	defer qualRows.Close()

	user.Qualifications = []domain.QualificationAssignment{}
	for qualRows.Next() {
		var qa domain.QualificationAssignment
		if err := qualRows.Scan(&qa.ID, &qa.UserID, &qa.Qualification); err != nil {
			return fmt.Errorf("failed to scan qualification: %w", err)
		}
		user.Qualifications = append(user.Qualifications, qa)
	}

	return qualRows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{ProbationRegion: &domain.ProbationRegion{}}

	var email, telephone sql.NullString
	var pduIDVal, pduName, pduCode, pduRegionID sql.NullString
	var areaIDVal, areaCode, areaName sql.NullString

	err := row.Scan(
		&user.ID,
		&user.DeliusUsername,
		&user.Name,
		&email,
		&telephone,
		&user.StaffIdentifier,
		&user.StaffCode,
		pq.Array(&user.TeamCodes),
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.ProbationRegion.ID,
		&user.ProbationRegion.Name,
		&user.ProbationRegion.DeliusCode,
		&user.ProbationRegion.ApAreaID,
		&pduIDVal,
		&pduName,
		&pduCode,
		&pduRegionID,
		&areaIDVal,
		&areaCode,
		&areaName,
	)
	if err != nil {
		return nil, err
	}

	user.Email = email.String
	user.Telephone = telephone.String

	if pduIDVal.Valid {
		user.PDU = &domain.ProbationDeliveryUnit{
			ID:         pduIDVal.String,
			Name:       pduName.String,
			DeliusCode: pduCode.String,
			RegionID:   pduRegionID.String,
		}
	}

	if areaIDVal.Valid {
		user.ApArea = &domain.ApArea{
			ID:   areaIDVal.String,
			Code: areaCode.String,
			Name: areaName.String,
		}
	}

	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func pduID(pdu *domain.ProbationDeliveryUnit) sql.NullString {
	if pdu == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: pdu.ID, Valid: true}
}

func apAreaID(area *domain.ApArea) sql.NullString {
	if area == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: area.ID, Valid: true}
}
