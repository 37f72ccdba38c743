package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yourorg/placements/internal/domain"
)

func TestRoleRepositoryAddRoleToUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRoleRepository(db, nil)

	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs(sqlmock.AnyArg(), "u-1", "CAS1_MATCHER").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.AddRoleToUser("u-1", domain.RoleCas1Matcher); err != nil {
		t.Fatalf("AddRoleToUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRoleRepositoryDeleteAllForUserAndRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRoleRepository(db, nil)

	// Duplicate rows all match the single delete.
	mock.ExpectExec(`DELETE FROM user_roles WHERE user_id = \$1 AND role = \$2`).
		WithArgs("u-1", "CAS1_MATCHER").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteAllForUserAndRole("u-1", domain.RoleCas1Matcher); err != nil {
		t.Fatalf("DeleteAllForUserAndRole: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRoleRepositoryDeleteServiceRolesForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	repo := NewPostgresRoleRepository(db, nil)

	mock.ExpectExec(`DELETE FROM user_roles WHERE user_id = \$1 AND role = ANY\(\$2\)`).
		WithArgs("u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.DeleteServiceRolesForUser("u-1", domain.ServiceApprovedPremises); err != nil {
		t.Fatalf("DeleteServiceRolesForUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
