package service

import (
	"testing"
	"time"

	"github.com/yourorg/placements/internal/domain"
)

type fakeBedSearchRepo struct {
	apParams *domain.ApBedSearchParams
	taParams *domain.TaBedSearchParams
	apRows   []domain.ApBedSearchRow
	taRows   []domain.TaBedSearchRow
	calls    int
}

func (m *fakeBedSearchRepo) FindApprovedPremisesBeds(params domain.ApBedSearchParams) ([]domain.ApBedSearchRow, error) {
	m.calls++
	m.apParams = &params
	return m.apRows, nil
}

func (m *fakeBedSearchRepo) FindTemporaryAccommodationBeds(params domain.TaBedSearchParams) ([]domain.TaBedSearchRow, error) {
	m.calls++
	m.taParams = &params
	return m.taRows, nil
}

type fakePostcodeRepo struct {
	byOutcode map[string]*domain.PostcodeDistrict
	lookups   int
}

func (m *fakePostcodeRepo) GetByOutcode(outcode string) (*domain.PostcodeDistrict, error) {
	m.lookups++
	if d, ok := m.byOutcode[outcode]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

type fakeCharacteristicRepo struct {
	byPropertyName map[string][]*domain.Characteristic
	lookups        int
}

func (m *fakeCharacteristicRepo) GetByPropertyNames(names []string) ([]*domain.Characteristic, error) {
	m.lookups++
	out := []*domain.Characteristic{}
	for _, name := range names {
		out = append(out, m.byPropertyName[name]...)
	}
	return out, nil
}

type bedSearchFixture struct {
	svc                *BedSearchService
	bedSearchRepo      *fakeBedSearchRepo
	postcodeRepo       *fakePostcodeRepo
	characteristicRepo *fakeCharacteristicRepo
}

func newBedSearchFixture() *bedSearchFixture {
	bedSearchRepo := &fakeBedSearchRepo{}
	postcodeRepo := &fakePostcodeRepo{byOutcode: map[string]*domain.PostcodeDistrict{
		"SW1": {ID: "pc-1", Outcode: "SW1", Latitude: 51.49, Longitude: -0.13},
	}}
	characteristicRepo := &fakeCharacteristicRepo{byPropertyName: map[string][]*domain.Characteristic{
		"isWheelchairAccessible": {{
			ID: "c-1", PropertyName: "isWheelchairAccessible",
			ServiceScope: domain.ServiceScopeAll, ModelScope: domain.ModelScopeRoom,
		}},
		"isCatered": {{
			ID: "c-2", PropertyName: "isCatered",
			ServiceScope: string(domain.ServiceApprovedPremises), ModelScope: domain.ModelScopePremises,
		}},
		"isGroundFloor": {{
			ID: "c-3", PropertyName: "isGroundFloor",
			ServiceScope: domain.ServiceScopeAll, ModelScope: domain.ModelScopeAll,
		}},
		"cas3Only": {{
			ID: "c-4", PropertyName: "cas3Only",
			ServiceScope: string(domain.ServiceTemporaryAccommodation), ModelScope: domain.ModelScopeRoom,
		}},
		"isPerson": {{
			ID: "c-5", PropertyName: "isPerson",
			ServiceScope: domain.ServiceScopeAll, ModelScope: "person",
		}},
		"ambiguous": {
			{ID: "c-6a", PropertyName: "ambiguous", ServiceScope: domain.ServiceScopeAll, ModelScope: domain.ModelScopeRoom},
			{ID: "c-6b", PropertyName: "ambiguous", ServiceScope: domain.ServiceScopeAll, ModelScope: domain.ModelScopePremises},
		},
	}}

	return &bedSearchFixture{
		svc:                NewBedSearchService(bedSearchRepo, postcodeRepo, characteristicRepo, nil),
		bedSearchRepo:      bedSearchRepo,
		postcodeRepo:       postcodeRepo,
		characteristicRepo: characteristicRepo,
	}
}

func matcher() *domain.User {
	u := userWithRoles("u-matcher", "MATCHER", domain.RoleCas1Matcher)
	u.ProbationRegion = &domain.ProbationRegion{ID: "region-1", Name: "Kent Surrey Sussex"}
	return u
}

func TestApBedSearchRequiresMatcherRole(t *testing.T) {
	f := newBedSearchFixture()
	user := userWithRoles("u-1", "PLAIN", domain.RoleCas1Assessor)

	result, err := f.svc.FindApprovedPremisesBeds(user, "SW1", 50, time.Now(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.BedSearchUnauthorised {
		t.Fatalf("expected unauthorised outcome, got %d", result.Kind)
	}
	// The gate must fire before any collaborator is consulted.
	if f.postcodeRepo.lookups != 0 || f.characteristicRepo.lookups != 0 || f.bedSearchRepo.calls != 0 {
		t.Fatalf("unauthorised search must not touch collaborators: %d/%d/%d",
			f.postcodeRepo.lookups, f.characteristicRepo.lookups, f.bedSearchRepo.calls)
	}
}

func TestApBedSearchAccumulatesFieldErrors(t *testing.T) {
	f := newBedSearchFixture()

	result, err := f.svc.FindApprovedPremisesBeds(matcher(), "ZZ99", 0, time.Now(), 0, []string{"noSuchThing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.BedSearchFieldErrors {
		t.Fatalf("expected field errors, got %d", result.Kind)
	}

	want := map[string]string{
		"$.postcodeDistrictOutcode": "doesNotExist",
		"$.requiredCharacteristics": "noSuchThing doesNotExist",
		"$.durationInWeeks":         "mustBeAtLeast1",
		"$.maxDistanceMiles":        "mustBeAtLeast1",
	}
	if len(result.FieldErrors) != len(want) {
		t.Fatalf("expected %d field errors, got %v", len(want), result.FieldErrors)
	}
	for key, msg := range want {
		if result.FieldErrors[key] != msg {
			t.Fatalf("field %s: expected %q, got %q", key, msg, result.FieldErrors[key])
		}
	}
	if f.bedSearchRepo.calls != 0 {
		t.Fatalf("invalid search must not query the repository")
	}
}

func TestApBedSearchCharacteristicScopeValidation(t *testing.T) {
	f := newBedSearchFixture()

	cases := []struct {
		name     string
		property string
		wantMsg  string
	}{
		{"wrong service", "cas3Only", "cas3Only scopeInvalid"},
		{"wrong model", "isPerson", "isPerson scopeInvalid"},
		{"ambiguous name", "ambiguous", "ambiguous doesNotExist"},
	}

	for _, tc := range cases {
		result, err := f.svc.FindApprovedPremisesBeds(matcher(), "SW1", 50, time.Now(), 1, []string{tc.property})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if result.Kind != domain.BedSearchFieldErrors {
			t.Fatalf("%s: expected field errors, got %d", tc.name, result.Kind)
		}
		if got := result.FieldErrors["$.requiredCharacteristics"]; got != tc.wantMsg {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.wantMsg, got)
		}
	}
}

func TestApBedSearchPartitionsCharacteristicsByModelScope(t *testing.T) {
	f := newBedSearchFixture()
	f.bedSearchRepo.apRows = []domain.ApBedSearchRow{{PremisesName: "Oak House", BedName: "Bed 1"}}

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	result, err := f.svc.FindApprovedPremisesBeds(
		matcher(), "SW1", 30, start, 4,
		[]string{"isWheelchairAccessible", "isCatered", "isGroundFloor"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.BedSearchOK {
		t.Fatalf("expected ok outcome, got %d (%v)", result.Kind, result.FieldErrors)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(result.Rows))
	}

	params := f.bedSearchRepo.apParams
	if params == nil {
		t.Fatalf("repository not queried")
	}
	// Wildcard model scope lands in both lists.
	wantPremises := []string{"c-2", "c-3"}
	wantRoom := []string{"c-1", "c-3"}
	if !sameStrings(params.PremisesCharacteristicIDs, wantPremises) {
		t.Fatalf("premises ids: expected %v, got %v", wantPremises, params.PremisesCharacteristicIDs)
	}
	if !sameStrings(params.RoomCharacteristicIDs, wantRoom) {
		t.Fatalf("room ids: expected %v, got %v", wantRoom, params.RoomCharacteristicIDs)
	}
	if params.PostcodeOutcode != "SW1" || params.MaxDistanceMiles != 30 || params.DurationInWeeks != 4 {
		t.Fatalf("search params not forwarded: %+v", params)
	}
	if !params.StartDate.Equal(start) {
		t.Fatalf("start date not forwarded: %v", params.StartDate)
	}
}

func TestTaBedSearchValidatesDuration(t *testing.T) {
	f := newBedSearchFixture()

	result, err := f.svc.FindTemporaryAccommodationBeds(matcher(), time.Now(), 0, "East Kent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.BedSearchFieldErrors {
		t.Fatalf("expected field errors, got %d", result.Kind)
	}
	if result.FieldErrors["$.durationInDays"] != "mustBeAtLeast1" {
		t.Fatalf("unexpected message: %v", result.FieldErrors)
	}
	if f.bedSearchRepo.calls != 0 {
		t.Fatalf("invalid search must not query the repository")
	}
}

func TestTaBedSearchScopesToCallersRegion(t *testing.T) {
	f := newBedSearchFixture()
	f.bedSearchRepo.taRows = []domain.TaBedSearchRow{{PremisesName: "Elm Cottage"}}

	user := matcher()
	result, err := f.svc.FindTemporaryAccommodationBeds(user, time.Now(), 28, "East Kent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != domain.BedSearchOK {
		t.Fatalf("expected ok outcome, got %d", result.Kind)
	}

	params := f.bedSearchRepo.taParams
	if params.ProbationRegionID != "region-1" {
		t.Fatalf("search must be scoped to the caller's region, got %q", params.ProbationRegionID)
	}
	if params.ProbationDeliveryUnitName != "East Kent" || params.DurationInDays != 28 {
		t.Fatalf("search params not forwarded: %+v", params)
	}
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
