package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/placements/internal/domain"
)

// PostgresProbationRegionRepository implements domain.ProbationRegionRepository
// using PostgreSQL
type PostgresProbationRegionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProbationRegionRepository creates a new probation region repository
func NewPostgresProbationRegionRepository(db *sql.DB, logger *slog.Logger) *PostgresProbationRegionRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProbationRegionRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a probation region by ID
func (r *PostgresProbationRegionRepository) GetByID(id string) (*domain.ProbationRegion, error) {
	query := `
		SELECT id, name, delius_code, ap_area_id
		FROM probation_regions
		WHERE id = $1
	`
	return r.getOne(query, id)
}

// GetByDeliusCode resolves an upstream probation-area code to a region
func (r *PostgresProbationRegionRepository) GetByDeliusCode(code string) (*domain.ProbationRegion, error) {
	query := `
		SELECT id, name, delius_code, ap_area_id
		FROM probation_regions
		WHERE delius_code = $1
	`
	return r.getOne(query, code)
}

func (r *PostgresProbationRegionRepository) getOne(query string, arg string) (*domain.ProbationRegion, error) {
	region := &domain.ProbationRegion{}

	err := r.db.QueryRow(query, arg).Scan(
		&region.ID,
		&region.Name,
		&region.DeliusCode,
		&region.ApAreaID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get probation region", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get probation region: %w", err)
	}

	return region, nil
}

// PostgresApAreaRepository implements domain.ApAreaRepository using PostgreSQL
type PostgresApAreaRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresApAreaRepository creates a new AP area repository
func NewPostgresApAreaRepository(db *sql.DB, logger *slog.Logger) *PostgresApAreaRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresApAreaRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an AP area by ID
func (r *PostgresApAreaRepository) GetByID(id string) (*domain.ApArea, error) {
	return r.getOne(`SELECT id, code, name FROM ap_areas WHERE id = $1`, id)
}

// GetByCode retrieves an AP area by its code
func (r *PostgresApAreaRepository) GetByCode(code string) (*domain.ApArea, error) {
	return r.getOne(`SELECT id, code, name FROM ap_areas WHERE code = $1`, code)
}

func (r *PostgresApAreaRepository) getOne(query string, arg string) (*domain.ApArea, error) {
	area := &domain.ApArea{}

	err := r.db.QueryRow(query, arg).Scan(&area.ID, &area.Code, &area.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get ap area", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get ap area: %w", err)
	}

	return area, nil
}

// PostgresPduRepository implements domain.ProbationDeliveryUnitRepository
// using PostgreSQL
type PostgresPduRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPduRepository creates a new PDU repository
func NewPostgresPduRepository(db *sql.DB, logger *slog.Logger) *PostgresPduRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPduRepository{
		db:     db,
		logger: logger,
	}
}

// GetByDeliusCode resolves an upstream borough code to a PDU
func (r *PostgresPduRepository) GetByDeliusCode(code string) (*domain.ProbationDeliveryUnit, error) {
	query := `
		SELECT id, name, delius_code, probation_region_id
		FROM probation_delivery_units
		WHERE delius_code = $1
	`

	pdu := &domain.ProbationDeliveryUnit{}

	err := r.db.QueryRow(query, code).Scan(
		&pdu.ID,
		&pdu.Name,
		&pdu.DeliusCode,
		&pdu.RegionID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get pdu",
			slog.String("delius_code", code),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get pdu: %w", err)
	}

	return pdu, nil
}

// PostgresPostcodeDistrictRepository implements
// domain.PostcodeDistrictRepository using PostgreSQL
type PostgresPostcodeDistrictRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresPostcodeDistrictRepository creates a new postcode district repository
func NewPostgresPostcodeDistrictRepository(db *sql.DB, logger *slog.Logger) *PostgresPostcodeDistrictRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPostcodeDistrictRepository{
		db:     db,
		logger: logger,
	}
}

// GetByOutcode retrieves a postcode district by outcode
func (r *PostgresPostcodeDistrictRepository) GetByOutcode(outcode string) (*domain.PostcodeDistrict, error) {
	query := `
		SELECT id, outcode, latitude, longitude
		FROM postcode_districts
		WHERE UPPER(outcode) = UPPER($1)
	`

	district := &domain.PostcodeDistrict{}

	err := r.db.QueryRow(query, outcode).Scan(
		&district.ID,
		&district.Outcode,
		&district.Latitude,
		&district.Longitude,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get postcode district",
			slog.String("outcode", outcode),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get postcode district: %w", err)
	}

	return district, nil
}
