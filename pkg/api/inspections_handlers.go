package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/easternmills/millops/pkg/middleware"
	"github.com/easternmills/millops/pkg/storage"
)

type inspectionRequest struct {
	SampleID string `json:"sample_id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Status   string `json:"status,omitempty"`
	Findings string `json:"findings,omitempty"`
}

var inspectionKinds = map[string]bool{
	"lab":        true,
	"compliance": true,
	"final":      true,
}

func (s *Server) listInspections(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	inspections, err := s.inspections.ListInspections(r.Context(), r.URL.Query().Get("kind"), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list inspections")
		writeError(w, http.StatusInternalServerError, "failed to list inspections")
		return
	}
	if inspections == nil {
		inspections = []*storage.Inspection{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"inspections": inspections})
}

func (s *Server) getInspection(w http.ResponseWriter, r *http.Request) {
	inspection, err := s.inspections.GetInspection(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "inspection not found")
		return
	} else if err != nil {
		s.logger.WithError(err).Error("failed to fetch inspection")
		writeError(w, http.StatusInternalServerError, "failed to fetch inspection")
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

func (s *Server) createInspection(w http.ResponseWriter, r *http.Request) {
	var req inspectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !inspectionKinds[req.Kind] {
		writeError(w, http.StatusBadRequest, "kind must be lab, compliance or final")
		return
	}

	status := req.Status
	if status == "" {
		status = "open"
	}
	var inspectorUID string
	if principal := middleware.GetPrincipal(r); principal != nil {
		inspectorUID = principal.SubjectID
	}

	inspection := &storage.Inspection{
		ID:           uuid.New().String(),
		SampleID:     req.SampleID,
		Kind:         req.Kind,
		Status:       status,
		Findings:     req.Findings,
		InspectorUID: inspectorUID,
	}
	if err := s.inspections.CreateInspection(r.Context(), inspection); err != nil {
		s.logger.WithError(err).Error("failed to create inspection")
		writeError(w, http.StatusInternalServerError, "failed to create inspection")
		return
	}
	writeJSON(w, http.StatusCreated, inspection)
}

func (s *Server) updateInspection(w http.ResponseWriter, r *http.Request) {
	inspection, err := s.inspections.GetInspection(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "inspection not found")
		return
	} else if err != nil {
		s.logger.WithError(err).Error("failed to fetch inspection")
		writeError(w, http.StatusInternalServerError, "failed to fetch inspection")
		return
	}

	var req inspectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != "" {
		inspection.Status = req.Status
	}
	if req.Findings != "" {
		inspection.Findings = req.Findings
	}

	if err := s.inspections.UpdateInspection(r.Context(), inspection); err != nil {
		s.logger.WithError(err).Error("failed to update inspection")
		writeError(w, http.StatusInternalServerError, "failed to update inspection")
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}
