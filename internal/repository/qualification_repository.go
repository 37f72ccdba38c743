package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yourorg/placements/internal/domain"
)

// PostgresQualificationRepository implements domain.QualificationRepository
// using PostgreSQL
type PostgresQualificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresQualificationRepository creates a new qualification repository
func NewPostgresQualificationRepository(db *sql.DB, logger *slog.Logger) *PostgresQualificationRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresQualificationRepository{
		db:     db,
		logger: logger,
	}
}

// AddQualificationToUser inserts one qualification assignment row
func (r *PostgresQualificationRepository) AddQualificationToUser(userID string, qualification domain.Qualification) error {
	query := `
		INSERT INTO user_qualifications (id, user_id, qualification, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := r.db.Exec(query, uuid.NewString(), userID, string(qualification)); err != nil {
		r.logger.Error("failed to add qualification",
			slog.String("user_id", userID),
			slog.String("qualification", string(qualification)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to add qualification: %w", err)
	}

	return nil
}

// DeleteAllForUser removes every qualification assignment for the user
func (r *PostgresQualificationRepository) DeleteAllForUser(userID string) error {
	query := `DELETE FROM user_qualifications WHERE user_id = $1`

	if _, err := r.db.Exec(query, userID); err != nil {
		r.logger.Error("failed to delete qualifications",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete qualifications: %w", err)
	}

	return nil
}
