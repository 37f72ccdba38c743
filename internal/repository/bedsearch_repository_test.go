package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yourorg/placements/internal/domain"
)

func TestFindApprovedPremisesBeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresBedSearchRepository(db, nil)

	columns := []string{
		"premises_id", "premises_name", "address_line1", "postcode", "bed_count",
		"premises_characteristics", "distance_miles",
		"room_id", "room_name", "room_characteristics",
		"bed_id", "bed_name", "bed_characteristics",
	}
	rows := sqlmock.NewRows(columns).
		AddRow(
			"p-1", "Oak House", "1 Main St", "SW1A 1AA", 12,
			[]byte(`{"Catered"}`), 2.4,
			"r-1", "Room 1", []byte(`{"Wheelchair accessible"}`),
			"b-1", "Bed 1", []byte(`{}`),
		).
		AddRow(
			"p-2", "Elm House", "2 High St", "SW2B 2BB", 8,
			[]byte(`{}`), 6.1,
			"r-2", "Room 4", []byte(`{}`),
			"b-2", "Bed 2", []byte(`{}`),
		)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM premises pr`).
		WithArgs("SW1", 30, start, 4, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	results, err := repo.FindApprovedPremisesBeds(domain.ApBedSearchParams{
		PostcodeOutcode:           "SW1",
		MaxDistanceMiles:          30,
		StartDate:                 start,
		DurationInWeeks:           4,
		PremisesCharacteristicIDs: []string{"c-1"},
		RoomCharacteristicIDs:     []string{"c-2"},
	})
	if err != nil {
		t.Fatalf("FindApprovedPremisesBeds: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two rows, got %d", len(results))
	}

	first := results[0]
	if first.PremisesName != "Oak House" || first.DistanceMiles != 2.4 {
		t.Fatalf("first row not scanned: %+v", first)
	}
	if len(first.PremisesCharacteristicNames) != 1 || first.PremisesCharacteristicNames[0] != "Catered" {
		t.Fatalf("characteristic names not scanned: %v", first.PremisesCharacteristicNames)
	}
	if first.RoomName != "Room 1" || first.BedName != "Bed 1" {
		t.Fatalf("room/bed not scanned: %+v", first)
	}
	if len(results[1].PremisesCharacteristicNames) != 0 {
		t.Fatalf("empty array should scan to no names: %v", results[1].PremisesCharacteristicNames)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindTemporaryAccommodationBeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresBedSearchRepository(db, nil)

	columns := []string{
		"premises_id", "premises_name", "address_line1", "postcode", "bed_count",
		"room_id", "room_name", "bed_id", "bed_name",
	}
	rows := sqlmock.NewRows(columns).
		AddRow("p-1", "Elm Cottage", "3 Low Rd", "CT1 1AA", 4, "r-1", "Room 2", "b-1", "Bed 1")

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`pr.probation_region_id = \$1`).
		WithArgs("region-1", "East Kent", start, 28).
		WillReturnRows(rows)

	results, err := repo.FindTemporaryAccommodationBeds(domain.TaBedSearchParams{
		ProbationRegionID:         "region-1",
		ProbationDeliveryUnitName: "East Kent",
		StartDate:                 start,
		DurationInDays:            28,
	})
	if err != nil {
		t.Fatalf("FindTemporaryAccommodationBeds: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one row, got %d", len(results))
	}
	if results[0].PremisesName != "Elm Cottage" || results[0].PremisesBedCount != 4 {
		t.Fatalf("row not scanned: %+v", results[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
