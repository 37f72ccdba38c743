package staffdirectory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/reliability/circuitbreaker"
	"github.com/yourorg/placements/internal/reliability/retry"
)

// ErrCircuitOpen is returned without calling upstream while the breaker is open.
var ErrCircuitOpen = errors.New("staff directory circuit open")

type staffTeamResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Borough     struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"borough"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

type staffDetailResponse struct {
	Username string `json:"username"`
	Name     struct {
		Forename string `json:"forename"`
		Surname  string `json:"surname"`
	} `json:"name"`
	Email             string              `json:"email"`
	Telephone         string              `json:"telephoneNumber"`
	StaffIdentifier   int64               `json:"staffIdentifier"`
	StaffCode         string              `json:"code"`
	ProbationAreaCode string              `json:"probationAreaCode"`
	Teams             []staffTeamResponse `json:"teams"`
}

type caseAccessResponse struct {
	CRN                   string `json:"crn"`
	CurrentlyExcluded     bool   `json:"userExcluded"`
	CurrentlyRestricted   bool   `json:"userRestricted"`
	LimitedAccessOffender bool   `json:"limitedAccessOffender"`
}

// Client calls the upstream staff-directory API. It implements
// domain.StaffDirectoryClient. Transport-level failures are retried with
// backoff and guarded by a circuit breaker; HTTP error statuses are returned
// as *domain.UpstreamStatusError without retry.
type Client struct {
	http     *resty.Client
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
	logger   *slog.Logger
}

// NewClient creates a staff-directory client against the given base URL
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("staff directory circuit state changed",
			slog.Int("from", int(from)),
			slog.Int("to", int(to)),
		)
	})

	return &Client{
		http:     http,
		breaker:  breaker,
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

// GetStaffDetail fetches the staff record for a username
func (c *Client) GetStaffDetail(ctx context.Context, username string) (*domain.StaffDetail, error) {
	path := fmt.Sprintf("/staff/%s", username)

	var parsed staffDetailResponse
	if err := c.get(ctx, path, &parsed); err != nil {
		return nil, err
	}

	teams := make([]domain.StaffTeam, 0, len(parsed.Teams))
	for _, t := range parsed.Teams {
		startDate, err := time.Parse("2006-01-02", t.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid team start date %q: %w", t.StartDate, err)
		}

		var endDate *time.Time
		if t.EndDate != nil {
			parsedEnd, err := time.Parse("2006-01-02", *t.EndDate)
			if err != nil {
				return nil, fmt.Errorf("invalid team end date %q: %w", *t.EndDate, err)
			}
			endDate = &parsedEnd
		}

		teams = append(teams, domain.StaffTeam{
			Code:               t.Code,
			Description:        t.Description,
			BoroughCode:        t.Borough.Code,
			BoroughDescription: t.Borough.Description,
			StartDate:          startDate,
			EndDate:            endDate,
		})
	}

	return &domain.StaffDetail{
		Username:          parsed.Username,
		Forename:          parsed.Name.Forename,
		Surname:           parsed.Name.Surname,
		Email:             parsed.Email,
		Telephone:         parsed.Telephone,
		StaffIdentifier:   parsed.StaffIdentifier,
		StaffCode:         parsed.StaffCode,
		ProbationAreaCode: parsed.ProbationAreaCode,
		Teams:             teams,
	}, nil
}

// GetCaseAccess fetches visibility restrictions for a case
func (c *Client) GetCaseAccess(ctx context.Context, crn string) (*domain.CaseAccess, error) {
	path := fmt.Sprintf("/case/%s/access", crn)

	var parsed caseAccessResponse
	if err := c.get(ctx, path, &parsed); err != nil {
		return nil, err
	}

	return &domain.CaseAccess{
		CRN:                   parsed.CRN,
		LimitedAccessOffender: parsed.LimitedAccessOffender,
		UserExcluded:          parsed.CurrentlyExcluded,
		UserRestricted:        parsed.CurrentlyRestricted,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	if !c.breaker.AllowRequest() {
		return ErrCircuitOpen
	}

	_, err := retry.Do(ctx, c.retryCfg, c.logger, "staff-directory "+path, func(ctx context.Context) (struct{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(result).
			Get(path)
		if err != nil {
			return struct{}{}, err
		}

		if resp.IsError() {
			// HTTP error statuses are terminal, only transport errors retry
			return struct{}{}, retry.Permanent(&domain.UpstreamStatusError{
				Method:     "GET",
				Path:       path,
				StatusCode: resp.StatusCode(),
				Body:       string(resp.Body()),
			})
		}

		return struct{}{}, nil
	})

	if err != nil {
		var statusErr *domain.UpstreamStatusError
		if errors.As(err, &statusErr) {
			if statusErr.StatusCode >= 500 {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
			return statusErr
		}
		c.breaker.RecordFailure()
		return fmt.Errorf("staff directory request failed: %w", err)
	}

	c.breaker.RecordSuccess()
	return nil
}
