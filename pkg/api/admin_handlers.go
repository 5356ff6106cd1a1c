package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/audit"
	"github.com/easternmills/millops/pkg/middleware"
)

// listUsers returns every stored user record. Records are returned as
// stored, legacy shape included, so administrators can see what a user's
// access actually derives from.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	records, err := s.users.ListUserRecords(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to list user records")
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if records == nil {
		records = []*access.StoredUserRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": records})
}

// getUser returns one stored record together with its normalized projection,
// so an administrator sees both what is stored and what it grants.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	record, err := s.users.FetchUserRecord(r.Context(), uid)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch user record")
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	normalized := access.Normalize(record, access.DeriveRole(record.Email))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"record":     record,
		"normalized": normalized,
	})
}

type updateUserRequest struct {
	Department  *string  `json:"department,omitempty"`
	Tabs        []string `json:"tabs,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Role        *string  `json:"role,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// updateUser replaces the assignable fields of a stored record. Updates
// always write the structured shape; this is how legacy records eventually
// migrate off the flat fields.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	record, err := s.users.FetchUserRecord(r.Context(), uid)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch user record")
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	roleChanged := false
	if req.Role != nil {
		if _, ok := access.LookupRole(*req.Role); !ok {
			writeError(w, http.StatusBadRequest, "unknown role")
			return
		}
		record.Role = req.Role
		roleChanged = true
	}
	if req.Department != nil {
		record.Department = req.Department
	}
	if req.Tabs != nil {
		record.Tabs = req.Tabs
	}
	if req.Permissions != nil {
		record.Permissions = req.Permissions
	}
	if req.IsActive != nil {
		record.IsActive = *req.IsActive
	}

	// Writing the structured shape clears the legacy fields for good.
	if record.Tabs == nil {
		record.Tabs = []string{}
	}
	if record.Permissions == nil {
		record.Permissions = []string{}
	}
	if record.Department == nil {
		department := access.DepartmentNone
		record.Department = &department
	}
	record.LegacyDepartmentID = ""
	record.LegacyDepartmentKey = ""
	record.LegacyRole = ""
	record.LegacyAllowedTabs = nil
	record.LegacyIsAuthorized = nil

	if err := s.users.UpdateUserRecord(r.Context(), uid, record); err != nil {
		s.logger.WithError(err).Error("failed to update user record")
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	var adminUID string
	if principal := middleware.GetPrincipal(r); principal != nil {
		adminUID = principal.SubjectID
	}
	action := audit.ActionRecordUpdated
	if roleChanged {
		action = audit.ActionRoleChanged
	}
	s.recordAudit(r, &audit.Event{
		SubjectID: adminUID,
		Action:    action,
		Resource:  "users/" + uid,
	})

	normalized := access.Normalize(record, access.DeriveRole(record.Email))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"record":     record,
		"normalized": normalized,
	})
}

// listAuditEvents returns the recent audit trail, optionally filtered by
// subject.
func (s *Server) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": []*audit.Event{}})
		return
	}

	limit := 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	events, err := s.auditor.List(r.Context(), r.URL.Query().Get("subject_id"), limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list audit events")
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
