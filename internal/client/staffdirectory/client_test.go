package staffdirectory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/placements/internal/domain"
)

func TestGetStaffDetailParsesRecord(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"username": "JBLOGGS",
			"name": {"forename": "Jo", "surname": "Bloggs"},
			"email": "jo.bloggs@example.com",
			"telephoneNumber": "01234 567890",
			"staffIdentifier": 6789,
			"code": "SC100",
			"probationAreaCode": "N54",
			"teams": [
				{
					"code": "T1",
					"description": "East Kent Team",
					"borough": {"code": "B01", "description": "East Kent"},
					"startDate": "2024-01-15",
					"endDate": null
				},
				{
					"code": "T2",
					"description": "Old Team",
					"borough": {"code": "B02", "description": "West Kent"},
					"startDate": "2020-06-01",
					"endDate": "2023-12-31"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second, nil)
	detail, err := client.GetStaffDetail(context.Background(), "JBLOGGS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requestedPath != "/staff/JBLOGGS" {
		t.Fatalf("unexpected path %q", requestedPath)
	}
	if detail.Name() != "Jo Bloggs" {
		t.Fatalf("unexpected name %q", detail.Name())
	}
	if detail.StaffIdentifier != 6789 || detail.StaffCode != "SC100" {
		t.Fatalf("staff identifiers not parsed: %+v", detail)
	}
	if detail.ProbationAreaCode != "N54" {
		t.Fatalf("unexpected area code %q", detail.ProbationAreaCode)
	}
	if len(detail.Teams) != 2 {
		t.Fatalf("expected two teams, got %d", len(detail.Teams))
	}
	if detail.Teams[0].EndDate != nil {
		t.Fatalf("open-ended membership must have nil end date")
	}
	if detail.Teams[1].EndDate == nil || detail.Teams[1].EndDate.Year() != 2023 {
		t.Fatalf("ended membership not parsed: %+v", detail.Teams[1])
	}
	if detail.Teams[0].BoroughCode != "B01" {
		t.Fatalf("borough not parsed: %+v", detail.Teams[0])
	}
	if got := detail.TeamCodes(); len(got) != 2 || got[0] != "T1" || got[1] != "T2" {
		t.Fatalf("team codes out of order: %v", got)
	}
}

func TestGetStaffDetailNotFound(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "no such staff member", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second, nil)
	_, err := client.GetStaffDetail(context.Background(), "GHOST")
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if !domain.IsStaffRecordNotFound(err) {
		t.Fatalf("404 must map to a staff-record-not-found error, got %v", err)
	}
	// Error statuses are terminal, not retried.
	if requests != 1 {
		t.Fatalf("expected exactly one request, got %d", requests)
	}
}

func TestGetStaffDetailServerErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second, nil)
	_, err := client.GetStaffDetail(context.Background(), "JBLOGGS")
	if err == nil {
		t.Fatalf("expected error for 500")
	}
	if domain.IsStaffRecordNotFound(err) {
		t.Fatalf("500 must not look like a missing staff record")
	}

	var statusErr *domain.UpstreamStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status error carrying 500, got %v", err)
	}
}

func TestGetCaseAccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/case/X123456/access" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"crn": "X123456",
			"userExcluded": false,
			"userRestricted": true,
			"limitedAccessOffender": true
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second, nil)
	access, err := client.GetCaseAccess(context.Background(), "X123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !access.LimitedAccessOffender || !access.UserRestricted || access.UserExcluded {
		t.Fatalf("access flags not parsed: %+v", access)
	}
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second, nil)
	for i := 0; i < 5; i++ {
		if _, err := client.GetStaffDetail(context.Background(), "JBLOGGS"); err == nil {
			t.Fatalf("expected failure on attempt %d", i+1)
		}
	}

	_, err := client.GetStaffDetail(context.Background(), "JBLOGGS")
	if err != ErrCircuitOpen {
		t.Fatalf("expected open circuit, got %v", err)
	}
}
