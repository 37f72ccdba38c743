package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/security/audit"
	"github.com/yourorg/placements/internal/service"
)

// ApBedSearchRequest is the approved-premises search payload
type ApBedSearchRequest struct {
	PostcodeDistrictOutcode string   `json:"postcodeDistrictOutcode"`
	MaxDistanceMiles        int      `json:"maxDistanceMiles"`
	StartDate               string   `json:"startDate"`
	DurationInWeeks         int      `json:"durationInWeeks"`
	RequiredCharacteristics []string `json:"requiredCharacteristics"`
}

// TaBedSearchRequest is the temporary-accommodation search payload
type TaBedSearchRequest struct {
	StartDate                 string `json:"startDate"`
	DurationInDays            int    `json:"durationInDays"`
	ProbationDeliveryUnitName string `json:"probationDeliveryUnitName"`
}

// ApBedSearchRowResponse is one approved-premises result row
type ApBedSearchRowResponse struct {
	PremisesID                  string   `json:"premisesId"`
	PremisesName                string   `json:"premisesName"`
	PremisesAddressLine1        string   `json:"premisesAddressLine1"`
	PremisesPostcode            string   `json:"premisesPostcode"`
	PremisesBedCount            int      `json:"premisesBedCount"`
	PremisesCharacteristicNames []string `json:"premisesCharacteristicNames"`
	DistanceMiles               float64  `json:"distanceMiles"`
	RoomID                      string   `json:"roomId"`
	RoomName                    string   `json:"roomName"`
	RoomCharacteristicNames     []string `json:"roomCharacteristicNames"`
	BedID                       string   `json:"bedId"`
	BedName                     string   `json:"bedName"`
	BedCharacteristicNames      []string `json:"bedCharacteristicNames"`
}

// TaBedSearchRowResponse is one temporary-accommodation result row
type TaBedSearchRowResponse struct {
	PremisesID           string `json:"premisesId"`
	PremisesName         string `json:"premisesName"`
	PremisesAddressLine1 string `json:"premisesAddressLine1"`
	PremisesPostcode     string `json:"premisesPostcode"`
	PremisesBedCount     int    `json:"premisesBedCount"`
	RoomID               string `json:"roomId"`
	RoomName             string `json:"roomName"`
	BedID                string `json:"bedId"`
	BedName              string `json:"bedName"`
}

func toApRowResponses(rows []domain.ApBedSearchRow) []ApBedSearchRowResponse {
	out := make([]ApBedSearchRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ApBedSearchRowResponse{
			PremisesID:                  r.PremisesID,
			PremisesName:                r.PremisesName,
			PremisesAddressLine1:        r.PremisesAddressLine1,
			PremisesPostcode:            r.PremisesPostcode,
			PremisesBedCount:            r.PremisesBedCount,
			PremisesCharacteristicNames: r.PremisesCharacteristicNames,
			DistanceMiles:               r.DistanceMiles,
			RoomID:                      r.RoomID,
			RoomName:                    r.RoomName,
			RoomCharacteristicNames:     r.RoomCharacteristicNames,
			BedID:                       r.BedID,
			BedName:                     r.BedName,
			BedCharacteristicNames:      r.BedCharacteristicNames,
		})
	}
	return out
}

func toTaRowResponses(rows []domain.TaBedSearchRow) []TaBedSearchRowResponse {
	out := make([]TaBedSearchRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, TaBedSearchRowResponse{
			PremisesID:           r.PremisesID,
			PremisesName:         r.PremisesName,
			PremisesAddressLine1: r.PremisesAddressLine1,
			PremisesPostcode:     r.PremisesPostcode,
			PremisesBedCount:     r.PremisesBedCount,
			RoomID:               r.RoomID,
			RoomName:             r.RoomName,
			BedID:                r.BedID,
			BedName:              r.BedName,
		})
	}
	return out
}

// BedSearchHandler handles bed search endpoints
type BedSearchHandler struct {
	bedSearchService *service.BedSearchService
	userService      *service.UserService
	auditLogger      *audit.Logger
	logger           *slog.Logger
}

// NewBedSearchHandler creates a new bed search handler
func NewBedSearchHandler(
	bedSearchService *service.BedSearchService,
	userService *service.UserService,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *BedSearchHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &BedSearchHandler{
		bedSearchService: bedSearchService,
		userService:      userService,
		auditLogger:      auditLogger,
		logger:           logger,
	}
}

// SearchApprovedPremises handles POST /api/beds/search/approved-premises
func (h *BedSearchHandler) SearchApprovedPremises(w http.ResponseWriter, r *http.Request) {
	user, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	var req ApBedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeFieldErrors(w, map[string]string{"$.startDate": "invalid"})
		return
	}

	result, err := h.bedSearchService.FindApprovedPremisesBeds(
		user,
		req.PostcodeDistrictOutcode,
		req.MaxDistanceMiles,
		startDate,
		req.DurationInWeeks,
		req.RequiredCharacteristics,
	)
	if err != nil {
		h.logger.Error("bed search failed", slog.String("error", err.Error()))
		http.Error(w, "bed search failed", http.StatusInternalServerError)
		return
	}

	switch result.Kind {
	case domain.BedSearchUnauthorised:
		h.auditLogger.LogBedSearchDenied(r.Context(), user.DeliusUsername, "missing matcher role")
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	case domain.BedSearchFieldErrors:
		writeFieldErrors(w, result.FieldErrors)
	case domain.BedSearchOK:
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": toApRowResponses(result.Rows)})
	}
}

// SearchTemporaryAccommodation handles POST /api/beds/search/temporary-accommodation
func (h *BedSearchHandler) SearchTemporaryAccommodation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.resolveUser(w, r)
	if !ok {
		return
	}

	var req TaBedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeFieldErrors(w, map[string]string{"$.startDate": "invalid"})
		return
	}

	result, err := h.bedSearchService.FindTemporaryAccommodationBeds(
		user,
		startDate,
		req.DurationInDays,
		req.ProbationDeliveryUnitName,
	)
	if err != nil {
		h.logger.Error("bed search failed", slog.String("error", err.Error()))
		http.Error(w, "bed search failed", http.StatusInternalServerError)
		return
	}

	switch result.Kind {
	case domain.BedSearchUnauthorised:
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	case domain.BedSearchFieldErrors:
		writeFieldErrors(w, result.FieldErrors)
	case domain.BedSearchOK:
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": toTaRowResponses(result.Rows)})
	}
}

func (h *BedSearchHandler) resolveUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, err := h.userService.GetUserForRequest(r.Context())
	if err != nil {
		if err == service.ErrNoPrincipal {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return nil, false
		}
		h.logger.Error("failed to resolve user", slog.String("error", err.Error()))
		http.Error(w, "failed to resolve user", http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeFieldErrors(w http.ResponseWriter, fieldErrors map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"title":          "Bad Request",
		"invalid-params": fieldErrors,
	})
}
