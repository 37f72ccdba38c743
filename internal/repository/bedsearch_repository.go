package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/yourorg/placements/internal/domain"
)

// PostgresBedSearchRepository implements domain.BedSearchRepository using
// PostgreSQL
type PostgresBedSearchRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresBedSearchRepository creates a new bed search repository
func NewPostgresBedSearchRepository(db *sql.DB, logger *slog.Logger) *PostgresBedSearchRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBedSearchRepository{
		db:     db,
		logger: logger,
	}
}

// approvedPremisesBedSearchQuery ranks available approved-premises beds by
// great-circle distance from the requested outcode. A premises/room matches
// only when it carries every required characteristic; bookings and lost beds
// overlapping the requested window exclude a bed.
const approvedPremisesBedSearchQuery = `
WITH district AS (
	SELECT latitude, longitude
	FROM postcode_districts
	WHERE UPPER(outcode) = UPPER($1)
)
SELECT
	pr.id,
	pr.name,
	pr.address_line1,
	pr.postcode,
	(SELECT COUNT(*) FROM beds b2 JOIN rooms r2 ON b2.room_id = r2.id WHERE r2.premises_id = pr.id),
	ARRAY(
		SELECT c.name FROM premises_characteristics pc
		JOIN characteristics c ON c.id = pc.characteristic_id
		WHERE pc.premises_id = pr.id
	),
	3959 * acos(
		cos(radians(d.latitude)) * cos(radians(pr.latitude)) *
		cos(radians(pr.longitude) - radians(d.longitude)) +
		sin(radians(d.latitude)) * sin(radians(pr.latitude))
	) AS distance_miles,
	rm.id,
	rm.name,
	ARRAY(
		SELECT c.name FROM room_characteristics rc
		JOIN characteristics c ON c.id = rc.characteristic_id
		WHERE rc.room_id = rm.id
	),
	bd.id,
	bd.name,
	ARRAY(
		SELECT c.name FROM room_characteristics rc
		JOIN characteristics c ON c.id = rc.characteristic_id
		WHERE rc.room_id = rm.id AND c.model_scope IN ('room', '*')
	)
FROM premises pr
CROSS JOIN district d
JOIN rooms rm ON rm.premises_id = pr.id
JOIN beds bd ON bd.room_id = rm.id
WHERE pr.service = 'approved-premises'
	AND pr.status = 'active'
	AND (
		SELECT COUNT(DISTINCT pc.characteristic_id)
		FROM premises_characteristics pc
		WHERE pc.premises_id = pr.id AND pc.characteristic_id = ANY($5)
	) = cardinality($5::uuid[])
	AND (
		SELECT COUNT(DISTINCT rc.characteristic_id)
		FROM room_characteristics rc
		WHERE rc.room_id = rm.id AND rc.characteristic_id = ANY($6)
	) = cardinality($6::uuid[])
	AND NOT EXISTS (
		SELECT 1 FROM bookings bk
		WHERE bk.bed_id = bd.id
			AND bk.cancelled_at IS NULL
			AND bk.arrival_date < ($3::date + ($4 * INTERVAL '1 week'))
			AND bk.departure_date > $3::date
	)
	AND NOT EXISTS (
		SELECT 1 FROM lost_beds lb
		WHERE lb.bed_id = bd.id
			AND lb.cancelled_at IS NULL
			AND lb.start_date < ($3::date + ($4 * INTERVAL '1 week'))
			AND lb.end_date > $3::date
	)
	AND 3959 * acos(
		cos(radians(d.latitude)) * cos(radians(pr.latitude)) *
		cos(radians(pr.longitude) - radians(d.longitude)) +
		sin(radians(d.latitude)) * sin(radians(pr.latitude))
	) <= $2
ORDER BY distance_miles
`

// FindApprovedPremisesBeds runs the ranked approved-premises availability query
func (r *PostgresBedSearchRepository) FindApprovedPremisesBeds(params domain.ApBedSearchParams) ([]domain.ApBedSearchRow, error) {
	rows, err := r.db.Query(
		approvedPremisesBedSearchQuery,
		params.PostcodeOutcode,
		params.MaxDistanceMiles,
		params.StartDate,
		params.DurationInWeeks,
		pq.Array(params.PremisesCharacteristicIDs),
		pq.Array(params.RoomCharacteristicIDs),
	)
	if err != nil {
		r.logger.Error("approved premises bed search failed",
			slog.String("outcode", params.PostcodeOutcode),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("approved premises bed search failed: %w", err)
	}
	defer rows.Close()

	results := []domain.ApBedSearchRow{}
	for rows.Next() {
		var row domain.ApBedSearchRow
		err := rows.Scan(
			&row.PremisesID,
			&row.PremisesName,
			&row.PremisesAddressLine1,
			&row.PremisesPostcode,
			&row.PremisesBedCount,
			pq.Array(&row.PremisesCharacteristicNames),
			&row.DistanceMiles,
			&row.RoomID,
			&row.RoomName,
			pq.Array(&row.RoomCharacteristicNames),
			&row.BedID,
			&row.BedName,
			pq.Array(&row.BedCharacteristicNames),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bed search row: %w", err)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bed search rows: %w", err)
	}

	return results, nil
}

const temporaryAccommodationBedSearchQuery = `
SELECT
	pr.id,
	pr.name,
	pr.address_line1,
	pr.postcode,
	(SELECT COUNT(*) FROM beds b2 JOIN rooms r2 ON b2.room_id = r2.id WHERE r2.premises_id = pr.id),
	rm.id,
	rm.name,
	bd.id,
	bd.name
FROM premises pr
JOIN probation_delivery_units p ON p.id = pr.probation_delivery_unit_id
JOIN rooms rm ON rm.premises_id = pr.id
JOIN beds bd ON bd.room_id = rm.id
WHERE pr.service = 'temporary-accommodation'
	AND pr.status = 'active'
	AND pr.probation_region_id = $1
	AND p.name = $2
	AND NOT EXISTS (
		SELECT 1 FROM bookings bk
		WHERE bk.bed_id = bd.id
			AND bk.cancelled_at IS NULL
			AND bk.arrival_date < ($3::date + ($4 * INTERVAL '1 day'))
			AND bk.departure_date > $3::date
	)
	AND NOT EXISTS (
		SELECT 1 FROM lost_beds lb
		WHERE lb.bed_id = bd.id
			AND lb.cancelled_at IS NULL
			AND lb.start_date < ($3::date + ($4 * INTERVAL '1 day'))
			AND lb.end_date > $3::date
	)
ORDER BY pr.name, rm.name, bd.name
`

// FindTemporaryAccommodationBeds runs the region and PDU scoped availability query
func (r *PostgresBedSearchRepository) FindTemporaryAccommodationBeds(params domain.TaBedSearchParams) ([]domain.TaBedSearchRow, error) {
	rows, err := r.db.Query(
		temporaryAccommodationBedSearchQuery,
		params.ProbationRegionID,
		params.ProbationDeliveryUnitName,
		params.StartDate,
		params.DurationInDays,
	)
	if err != nil {
		r.logger.Error("temporary accommodation bed search failed",
			slog.String("pdu", params.ProbationDeliveryUnitName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("temporary accommodation bed search failed: %w", err)
	}
	defer rows.Close()

	results := []domain.TaBedSearchRow{}
	for rows.Next() {
		var row domain.TaBedSearchRow
		err := rows.Scan(
			&row.PremisesID,
			&row.PremisesName,
			&row.PremisesAddressLine1,
			&row.PremisesPostcode,
			&row.PremisesBedCount,
			&row.RoomID,
			&row.RoomName,
			&row.BedID,
			&row.BedName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bed search row: %w", err)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bed search rows: %w", err)
	}

	return results, nil
}
