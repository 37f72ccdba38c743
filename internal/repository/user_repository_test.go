package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yourorg/placements/internal/domain"
)

var userColumns = []string{
	"id", "delius_username", "name", "email", "telephone",
	"staff_identifier", "staff_code", "team_codes", "is_active",
	"created_at", "updated_at",
	"region_id", "region_name", "region_delius_code", "region_ap_area_id",
	"pdu_id", "pdu_name", "pdu_delius_code", "pdu_region_id",
	"area_id", "area_code", "area_name",
}

func userRow(id, username string) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, username, "Jo Bloggs", "jo@example.com", nil,
		int64(6789), "SC100", []byte(`{T1,T2}`), true,
		now, now,
		"region-1", "Kent Surrey Sussex", "N54", "area-1",
		"pdu-1", "East Kent", "B01", "region-1",
		"area-1", "SE", "South East",
	}
}

func expectAssignments(mock sqlmock.Sqlmock, userID string) {
	mock.ExpectQuery(`SELECT id, user_id, role FROM user_roles`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role"}).
			AddRow("ra-1", userID, "CAS1_MATCHER").
			AddRow("ra-2", userID, "CAS1_MATCHER"))
	mock.ExpectQuery(`SELECT id, user_id, qualification FROM user_qualifications`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "qualification"}).
			AddRow("qa-1", userID, "LAO"))
}

func TestUserRepositoryGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	mock.ExpectQuery(`FROM users u`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow("u-1", "JBLOGGS")...))
	expectAssignments(mock, "u-1")

	user, err := repo.GetByID("u-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.DeliusUsername != "JBLOGGS" {
		t.Fatalf("unexpected username %q", user.DeliusUsername)
	}
	if user.Email != "jo@example.com" || user.Telephone != "" {
		t.Fatalf("nullable fields not handled: %q / %q", user.Email, user.Telephone)
	}
	if len(user.TeamCodes) != 2 || user.TeamCodes[0] != "T1" {
		t.Fatalf("team codes not scanned: %v", user.TeamCodes)
	}
	if user.ProbationRegion == nil || user.ProbationRegion.DeliusCode != "N54" {
		t.Fatalf("region not scanned: %+v", user.ProbationRegion)
	}
	if user.PDU == nil || user.PDU.Name != "East Kent" {
		t.Fatalf("pdu not scanned: %+v", user.PDU)
	}
	if user.ApArea == nil || user.ApArea.Code != "SE" {
		t.Fatalf("ap area not scanned: %+v", user.ApArea)
	}
	// Duplicate role rows are kept as stored.
	if len(user.Roles) != 2 {
		t.Fatalf("expected two role assignments, got %d", len(user.Roles))
	}
	if len(user.Qualifications) != 1 || user.Qualifications[0].Qualification != domain.QualificationLao {
		t.Fatalf("qualifications not loaded: %v", user.Qualifications)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserRepositoryGetByIDNullableReferences(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	row := userRow("u-1", "JBLOGGS")
	for i := 15; i < 22; i++ { // pdu and ap area columns
		row[i] = nil
	}

	mock.ExpectQuery(`FROM users u`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(row...))
	mock.ExpectQuery(`FROM user_roles`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role"}))
	mock.ExpectQuery(`FROM user_qualifications`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "qualification"}))

	user, err := repo.GetByID("u-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.PDU != nil || user.ApArea != nil {
		t.Fatalf("expected nil PDU and ap area, got %+v / %+v", user.PDU, user.ApArea)
	}
	if len(user.Roles) != 0 || len(user.Qualifications) != 0 {
		t.Fatalf("expected empty assignments")
	}
}

func TestUserRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	mock.ExpectQuery(`FROM users u`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepositoryGetByDeliusUsernameIsCaseInsensitive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	mock.ExpectQuery(`UPPER\(u.delius_username\) = UPPER\(\$1\)`).
		WithArgs("jbloggs").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow("u-1", "JBLOGGS")...))
	expectAssignments(mock, "u-1")

	user, err := repo.GetByDeliusUsername("jbloggs")
	if err != nil {
		t.Fatalf("GetByDeliusUsername: %v", err)
	}
	if user.ID != "u-1" {
		t.Fatalf("unexpected user %q", user.ID)
	}
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(
			"u-1", "JBLOGGS", "Jo Bloggs", sqlmock.AnyArg(), sqlmock.AnyArg(),
			int64(6789), "SC100", sqlmock.AnyArg(), "region-1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	user := &domain.User{
		ID:              "u-1",
		DeliusUsername:  "JBLOGGS",
		Name:            "Jo Bloggs",
		StaffIdentifier: 6789,
		StaffCode:       "SC100",
		TeamCodes:       []string{"T1"},
		ProbationRegion: &domain.ProbationRegion{ID: "region-1"},
		IsActive:        true,
		CreatedAt:       now,
	}
	if err := repo.Create(user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.UpdatedAt.IsZero() {
		t.Fatalf("updated_at not written back")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserRepositoryUpdateMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	mock.ExpectQuery(`UPDATE users`).
		WillReturnError(sql.ErrNoRows)

	user := &domain.User{
		ID:              "missing",
		ProbationRegion: &domain.ProbationRegion{ID: "region-1"},
	}
	if err := repo.Update(user); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepositoryGetByPartialNameEmptyFragment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	users, err := repo.GetByPartialName("")
	if err != nil {
		t.Fatalf("GetByPartialName: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %d", len(users))
	}
	// No query must be issued for an empty fragment.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserRepositoryGetActiveUsersWithAnyRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresUserRepository(db, nil)

	mock.ExpectQuery(`ur.role = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow("u-1", "JBLOGGS")...))
	expectAssignments(mock, "u-1")

	users, err := repo.GetActiveUsersWithAnyRole([]domain.Role{domain.RoleCas1Matcher})
	if err != nil {
		t.Fatalf("GetActiveUsersWithAnyRole: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}

	// An empty role list short-circuits without a query.
	users, err = repo.GetActiveUsersWithAnyRole(nil)
	if err != nil || len(users) != 0 {
		t.Fatalf("expected empty result for no roles, got %v / %v", users, err)
	}
}
