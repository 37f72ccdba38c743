package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yourorg/placements/internal/domain"
)

// PostgresRoleRepository implements domain.RoleRepository using PostgreSQL.
// The table carries no uniqueness constraint on (user_id, role); duplicate
// rows are collapsed by callers.
type PostgresRoleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRoleRepository creates a new role repository
func NewPostgresRoleRepository(db *sql.DB, logger *slog.Logger) *PostgresRoleRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRoleRepository{
		db:     db,
		logger: logger,
	}
}

// AddRoleToUser inserts one role assignment row
func (r *PostgresRoleRepository) AddRoleToUser(userID string, role domain.Role) error {
	query := `
		INSERT INTO user_roles (id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := r.db.Exec(query, uuid.NewString(), userID, string(role)); err != nil {
		r.logger.Error("failed to add role",
			slog.String("user_id", userID),
			slog.String("role", string(role)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to add role: %w", err)
	}

	return nil
}

// DeleteAllForUserAndRole removes every row for the role, duplicates included
func (r *PostgresRoleRepository) DeleteAllForUserAndRole(userID string, role domain.Role) error {
	query := `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`

	if _, err := r.db.Exec(query, userID, string(role)); err != nil {
		r.logger.Error("failed to delete role",
			slog.String("user_id", userID),
			slog.String("role", string(role)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return nil
}

// DeleteServiceRolesForUser removes every role assignment belonging to the
// given service, leaving the other service's roles untouched
func (r *PostgresRoleRepository) DeleteServiceRolesForUser(userID string, service domain.ServiceName) error {
	roles := domain.RolesForService(service)
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, string(role))
	}

	query := `DELETE FROM user_roles WHERE user_id = $1 AND role = ANY($2)`

	if _, err := r.db.Exec(query, userID, pq.Array(roleNames)); err != nil {
		r.logger.Error("failed to delete service roles",
			slog.String("user_id", userID),
			slog.String("service", string(service)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete service roles: %w", err)
	}

	return nil
}
