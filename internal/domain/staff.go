package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StaffTeam is one team membership from the staff directory. EndDate is nil
// for open-ended memberships.
type StaffTeam struct {
	Code               string
	Description        string
	BoroughCode        string
	BoroughDescription string
	StartDate          time.Time
	EndDate            *time.Time
}

// Active reports whether the membership has not ended as of now.
func (t StaffTeam) Active(now time.Time) bool {
	return t.EndDate == nil || t.EndDate.After(now)
}

// StaffDetail is the upstream staff-directory record for a username.
type StaffDetail struct {
	Username          string
	Forename          string
	Surname           string
	Email             string
	Telephone         string
	StaffIdentifier   int64
	StaffCode         string
	ProbationAreaCode string
	Teams             []StaffTeam // Upstream order preserved
}

// Name joins forename and surname.
func (s *StaffDetail) Name() string {
	return s.Forename + " " + s.Surname
}

// TeamCodes returns the team codes in upstream order.
func (s *StaffDetail) TeamCodes() []string {
	out := make([]string, 0, len(s.Teams))
	for _, t := range s.Teams {
		out = append(out, t.Code)
	}
	return out
}

// CaseAccess describes visibility restrictions on a case.
type CaseAccess struct {
	CRN                   string
	LimitedAccessOffender bool
	UserExcluded          bool
	UserRestricted        bool
}

// UpstreamStatusError is a non-2xx response from the staff directory. Only a
// 404 maps to a domain outcome; everything else propagates unchanged.
type UpstreamStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsStaffRecordNotFound reports whether err is an upstream 404.
func IsStaffRecordNotFound(err error) bool {
	var statusErr *UpstreamStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// StaffDirectoryClient is the upstream staff-directory API.
type StaffDirectoryClient interface {
	GetStaffDetail(ctx context.Context, username string) (*StaffDetail, error)
	GetCaseAccess(ctx context.Context, crn string) (*CaseAccess, error)
}
