package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/security"
	"github.com/yourorg/placements/internal/security/audit"
	"github.com/yourorg/placements/internal/service"
)

// UserResponse is the API shape of a user
type UserResponse struct {
	ID             string   `json:"id"`
	DeliusUsername string   `json:"deliusUsername"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	Telephone      string   `json:"telephoneNumber,omitempty"`
	Region         string   `json:"region"`
	PDU            string   `json:"probationDeliveryUnit,omitempty"`
	ApArea         string   `json:"apArea,omitempty"`
	Roles          []string `json:"roles"`
	Qualifications []string `json:"qualifications"`
	IsActive       bool     `json:"isActive"`
}

func toUserResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:             user.ID,
		DeliusUsername: user.DeliusUsername,
		Name:           user.Name,
		Email:          user.Email,
		Telephone:      user.Telephone,
		Region:         user.ProbationRegion.Name,
		Roles:          []string{},
		Qualifications: []string{},
		IsActive:       user.IsActive,
	}
	if user.PDU != nil {
		resp.PDU = user.PDU.Name
	}
	if user.ApArea != nil {
		resp.ApArea = user.ApArea.Name
	}
	for _, ra := range user.Roles {
		resp.Roles = append(resp.Roles, string(ra.Role))
	}
	for _, qa := range user.Qualifications {
		resp.Qualifications = append(resp.Qualifications, string(qa.Qualification))
	}
	return resp
}

// UpdateRolesRequest is the role/qualification replacement payload
type UpdateRolesRequest struct {
	Service        string   `json:"service"`
	Roles          []string `json:"roles"`
	Qualifications []string `json:"qualifications"`
}

// UsersHandler handles user management endpoints
type UsersHandler struct {
	userService *service.UserService
	authorizer  *security.AuthorizationService
	auditLogger *audit.Logger
	logger      *slog.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(
	userService *service.UserService,
	authorizer *security.AuthorizationService,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *UsersHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &UsersHandler{
		userService: userService,
		authorizer:  authorizer,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUserForRequestOrNil(r.Context())
	if err != nil {
		h.logger.Error("failed to resolve user", slog.String("error", err.Error()))
		http.Error(w, "failed to resolve user", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// MeVersion handles GET /api/users/me/version
func (h *UsersHandler) MeVersion(w http.ResponseWriter, r *http.Request) {
	info, err := h.userService.GetUserForRequestVersionInfo(r.Context())
	if err != nil {
		h.logger.Error("failed to resolve user version", slog.String("error", err.Error()))
		http.Error(w, "failed to resolve user", http.StatusInternalServerError)
		return
	}
	if info == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId":  info.UserID,
		"version": info.Version,
	})
}

// Search handles GET /api/users?name=
func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, security.ActionSearchUsers); !ok {
		return
	}

	users, err := h.userService.GetUsersByPartialName(r.URL.Query().Get("name"))
	if err != nil {
		h.logger.Error("user search failed", slog.String("error", err.Error()))
		http.Error(w, "user search failed", http.StatusInternalServerError)
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": responses})
}

// Allocatable handles GET /api/users/allocatable?crn=&permission=
func (h *UsersHandler) Allocatable(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, security.ActionListAllocatables); !ok {
		return
	}

	crn := r.URL.Query().Get("crn")
	permission := domain.AllocationPermission(r.URL.Query().Get("permission"))
	if crn == "" || permission == "" {
		http.Error(w, "crn and permission are required", http.StatusBadRequest)
		return
	}

	excluded := []domain.Qualification{}
	for _, q := range r.URL.Query()["excludedQualification"] {
		excluded = append(excluded, domain.Qualification(q))
	}

	users, err := h.userService.GetAllocatableUsersForAllocationType(r.Context(), crn, excluded, permission)
	if err != nil {
		h.logger.Error("allocatable user lookup failed", slog.String("error", err.Error()))
		http.Error(w, "allocatable user lookup failed", http.StatusInternalServerError)
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": responses})
}

// Update handles PUT /api/users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, security.ActionUpdateUser); !ok {
		return
	}

	serviceName := domain.ServiceName(r.Header.Get("X-Service-Name"))
	if serviceName == "" {
		serviceName = domain.ServiceApprovedPremises
	}

	result, err := h.userService.UpdateUser(r.Context(), r.PathValue("id"), serviceName)
	if err != nil {
		h.logger.Error("user update failed", slog.String("error", err.Error()))
		http.Error(w, "user update failed", http.StatusInternalServerError)
		return
	}

	switch result.Kind {
	case domain.UpdateUserNotFound:
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	case domain.UpdateUserStaffRecordNotFound:
		writeJSON(w, http.StatusOK, map[string]interface{}{"staffRecordFound": false})
	case domain.UpdateUserOK:
		writeJSON(w, http.StatusOK, toUserResponse(result.User))
	}
}

// UpdatePdu handles PUT /api/users/{id}/pdu
func (h *UsersHandler) UpdatePdu(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, security.ActionUpdateUser); !ok {
		return
	}

	if err := h.userService.UpdateUserPduByID(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("pdu update failed", slog.String("error", err.Error()))
		http.Error(w, "pdu update failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateRoles handles PUT /api/users/{id}/roles
func (h *UsersHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAction(w, r, security.ActionManageUserRoles)
	if !ok {
		return
	}

	var req UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	serviceName := domain.ServiceName(req.Service)
	if serviceName != domain.ServiceApprovedPremises && serviceName != domain.ServiceTemporaryAccommodation {
		http.Error(w, "unknown service", http.StatusBadRequest)
		return
	}

	subjectID := r.PathValue("id")
	subject, err := h.userService.GetUserByID(subjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load user", slog.String("error", err.Error()))
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	roles := make([]domain.Role, 0, len(req.Roles))
	for _, role := range req.Roles {
		roles = append(roles, domain.Role(role))
	}
	qualifications := make([]domain.Qualification, 0, len(req.Qualifications))
	for _, q := range req.Qualifications {
		qualifications = append(qualifications, domain.Qualification(q))
	}

	updated, err := h.userService.UpdateRolesAndQualifications(subject, serviceName, roles, qualifications)
	if err != nil {
		h.logger.Error("role update failed", slog.String("error", err.Error()))
		http.Error(w, "role update failed", http.StatusInternalServerError)
		return
	}

	h.auditLogger.LogRoleChange(r.Context(), caller.DeliusUsername, subjectID, "ok", "roles replaced")
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// Delete handles DELETE /api/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireAction(w, r, security.ActionDeleteUser)
	if !ok {
		return
	}

	subjectID := r.PathValue("id")
	if err := h.userService.DeleteUser(subjectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("user delete failed", slog.String("error", err.Error()))
		http.Error(w, "user delete failed", http.StatusInternalServerError)
		return
	}

	h.auditLogger.LogUserDeletion(r.Context(), caller.DeliusUsername, subjectID, "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) requireAction(w http.ResponseWriter, r *http.Request, action security.APIAction) (*domain.User, bool) {
	caller, err := h.userService.GetUserForRequestOrNil(r.Context())
	if err != nil {
		h.logger.Error("failed to resolve caller", slog.String("error", err.Error()))
		http.Error(w, "failed to resolve caller", http.StatusInternalServerError)
		return nil, false
	}
	if caller == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil, false
	}

	if err := h.authorizer.ValidateAction(caller, action); err != nil {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return nil, false
	}

	return caller, true
}
