package test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/handler"
	"github.com/yourorg/placements/internal/infrastructure/logger"
	"github.com/yourorg/placements/internal/security"
	"github.com/yourorg/placements/internal/security/audit"
	"github.com/yourorg/placements/internal/security/auth"
	"github.com/yourorg/placements/internal/security/middleware"
	"github.com/yourorg/placements/internal/service"
)

// TestServerHelper runs the real HTTP surface against in-memory stores, so
// handler, middleware, and service wiring is exercised without Postgres or
// the upstream staff directory.
type TestServerHelper struct {
	Server       *httptest.Server
	Logger       *slog.Logger
	TokenManager *auth.TokenManager
	Users        *memUserRepo
	Staff        *memStaffClient
}

func NewTestServer(t *testing.T) *TestServerHelper {
	log := logger.NewLogger("error")

	region := &domain.ProbationRegion{ID: "region-1", Name: "Kent Surrey Sussex", DeliusCode: "N54", ApAreaID: "area-1"}
	area := &domain.ApArea{ID: "area-1", Code: "SE", Name: "South East"}

	users := newMemUserRepo()
	staff := &memStaffClient{details: map[string]*domain.StaffDetail{}, access: map[string]*domain.CaseAccess{}}
	regions := &memRegionRepo{byCode: map[string]*domain.ProbationRegion{"N54": region}}
	areas := &memApAreaRepo{byID: map[string]*domain.ApArea{"area-1": area}}
	pdus := &memPduRepo{byBorough: map[string]*domain.ProbationDeliveryUnit{
		"B01": {ID: "pdu-1", Name: "East Kent", DeliusCode: "B01", RegionID: "region-1"},
	}}
	postcodes := &memPostcodeRepo{byOutcode: map[string]*domain.PostcodeDistrict{
		"SW1": {ID: "pc-1", Outcode: "SW1", Latitude: 51.49, Longitude: -0.13},
	}}
	characteristics := &memCharacteristicRepo{byPropertyName: map[string][]*domain.Characteristic{
		"isWheelchairAccessible": {{
			ID: "c-1", PropertyName: "isWheelchairAccessible",
			ServiceScope: domain.ServiceScopeAll, ModelScope: domain.ModelScopeRoom,
		}},
	}}
	beds := &memBedSearchRepo{}

	apAreaService := service.NewApAreaService(areas, nil, log)
	offenderService := service.NewOffenderService(staff, log)
	userService := service.NewUserService(
		users, &memRoleRepo{}, &memQualificationRepo{},
		regions, pdus, staff, apAreaService, offenderService, log,
	)
	bedSearchService := service.NewBedSearchService(beds, postcodes, characteristics, log)

	authorizer := security.NewAuthorizationService(log)
	auditLogger := audit.NewLogger(log)
	tokenManager := auth.NewTokenManager("integration-test-secret", "placements")

	bedSearchHandler := handler.NewBedSearchHandler(bedSearchService, userService, auditLogger, log)
	usersHandler := handler.NewUsersHandler(userService, authorizer, auditLogger, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/beds/search/approved-premises", bedSearchHandler.SearchApprovedPremises)
	mux.HandleFunc("POST /api/beds/search/temporary-accommodation", bedSearchHandler.SearchTemporaryAccommodation)
	mux.HandleFunc("GET /api/users/me", usersHandler.Me)
	mux.HandleFunc("GET /api/users/me/version", usersHandler.MeVersion)
	mux.HandleFunc("GET /api/users", usersHandler.Search)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	root := middleware.JWTMiddleware(tokenManager, log)(mux)
	server := httptest.NewServer(root)

	return &TestServerHelper{
		Server:       server,
		Logger:       log,
		TokenManager: tokenManager,
		Users:        users,
		Staff:        staff,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// TokenFor mints a bearer token for the username.
func (h *TestServerHelper) TokenFor(t *testing.T, username string) string {
	token, err := h.TokenManager.GenerateToken(username, "delius", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// In-memory stores.

type memUserRepo struct {
	byID map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}}
}

func (m *memUserRepo) Add(u *domain.User) { m.byID[u.ID] = u }

func (m *memUserRepo) Create(u *domain.User) error {
	u.UpdatedAt = time.Now()
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByDeliusUsername(username string) (*domain.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.DeliusUsername, username) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Update(u *domain.User) error {
	u.UpdatedAt = time.Now()
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByPartialName(name string) ([]*domain.User, error) {
	out := []*domain.User{}
	for _, u := range m.byID {
		if u.IsActive && strings.Contains(strings.ToLower(u.Name), strings.ToLower(name)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) GetActiveUsersWithAnyRole(roles []domain.Role) ([]*domain.User, error) {
	out := []*domain.User{}
	for _, u := range m.byID {
		if u.IsActive && u.HasAnyRole(roles...) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) GetActiveUsersUpdatedBefore(cutoff time.Time, limit int) ([]*domain.User, error) {
	out := []*domain.User{}
	for _, u := range m.byID {
		if u.IsActive && u.UpdatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

type memRoleRepo struct{}

func (m *memRoleRepo) AddRoleToUser(userID string, role domain.Role) error { return nil }
func (m *memRoleRepo) DeleteAllForUserAndRole(userID string, role domain.Role) error {
	return nil
}
func (m *memRoleRepo) DeleteServiceRolesForUser(userID string, service domain.ServiceName) error {
	return nil
}

type memQualificationRepo struct{}

func (m *memQualificationRepo) AddQualificationToUser(userID string, q domain.Qualification) error {
	return nil
}
func (m *memQualificationRepo) DeleteAllForUser(userID string) error { return nil }

type memRegionRepo struct {
	byCode map[string]*domain.ProbationRegion
}

func (m *memRegionRepo) GetByID(id string) (*domain.ProbationRegion, error) {
	for _, r := range m.byCode {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRegionRepo) GetByDeliusCode(code string) (*domain.ProbationRegion, error) {
	if r, ok := m.byCode[code]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

type memApAreaRepo struct {
	byID map[string]*domain.ApArea
}

func (m *memApAreaRepo) GetByID(id string) (*domain.ApArea, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memApAreaRepo) GetByCode(code string) (*domain.ApArea, error) {
	for _, a := range m.byID {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memPduRepo struct {
	byBorough map[string]*domain.ProbationDeliveryUnit
}

func (m *memPduRepo) GetByDeliusCode(code string) (*domain.ProbationDeliveryUnit, error) {
	if p, ok := m.byBorough[code]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

type memPostcodeRepo struct {
	byOutcode map[string]*domain.PostcodeDistrict
}

func (m *memPostcodeRepo) GetByOutcode(outcode string) (*domain.PostcodeDistrict, error) {
	if d, ok := m.byOutcode[outcode]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

type memCharacteristicRepo struct {
	byPropertyName map[string][]*domain.Characteristic
}

func (m *memCharacteristicRepo) GetByPropertyNames(names []string) ([]*domain.Characteristic, error) {
	out := []*domain.Characteristic{}
	for _, name := range names {
		out = append(out, m.byPropertyName[name]...)
	}
	return out, nil
}

type memBedSearchRepo struct {
	apRows []domain.ApBedSearchRow
	taRows []domain.TaBedSearchRow
}

func (m *memBedSearchRepo) FindApprovedPremisesBeds(params domain.ApBedSearchParams) ([]domain.ApBedSearchRow, error) {
	return m.apRows, nil
}

func (m *memBedSearchRepo) FindTemporaryAccommodationBeds(params domain.TaBedSearchParams) ([]domain.TaBedSearchRow, error) {
	return m.taRows, nil
}

type memStaffClient struct {
	details map[string]*domain.StaffDetail
	access  map[string]*domain.CaseAccess
}

func (m *memStaffClient) GetStaffDetail(ctx context.Context, username string) (*domain.StaffDetail, error) {
	if d, ok := m.details[username]; ok {
		return d, nil
	}
	return nil, &domain.UpstreamStatusError{Method: "GET", Path: "/staff/" + username, StatusCode: http.StatusNotFound}
}

func (m *memStaffClient) GetCaseAccess(ctx context.Context, crn string) (*domain.CaseAccess, error) {
	if a, ok := m.access[crn]; ok {
		return a, nil
	}
	return &domain.CaseAccess{CRN: crn}, nil
}
