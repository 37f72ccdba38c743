package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/yourorg/placements/internal/domain"
)

// PostgresCharacteristicRepository implements domain.CharacteristicRepository
// using PostgreSQL
type PostgresCharacteristicRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCharacteristicRepository creates a new characteristic repository
func NewPostgresCharacteristicRepository(db *sql.DB, logger *slog.Logger) *PostgresCharacteristicRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCharacteristicRepository{
		db:     db,
		logger: logger,
	}
}

// GetByPropertyNames batch-resolves property names to characteristics. Names
// without a matching row are absent from the result.
func (r *PostgresCharacteristicRepository) GetByPropertyNames(names []string) ([]*domain.Characteristic, error) {
	if len(names) == 0 {
		return []*domain.Characteristic{}, nil
	}

	query := `
		SELECT id, name, property_name, service_scope, model_scope
		FROM characteristics
		WHERE property_name = ANY($1)
	`

	rows, err := r.db.Query(query, pq.Array(names))
	if err != nil {
		r.logger.Error("failed to get characteristics", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get characteristics: %w", err)
	}
	defer rows.Close()

	characteristics := []*domain.Characteristic{}
	for rows.Next() {
		c := &domain.Characteristic{}
		if err := rows.Scan(&c.ID, &c.Name, &c.PropertyName, &c.ServiceScope, &c.ModelScope); err != nil {
			return nil, fmt.Errorf("failed to scan characteristic: %w", err)
		}
		characteristics = append(characteristics, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate characteristics: %w", err)
	}

	return characteristics, nil
}
