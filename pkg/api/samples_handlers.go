package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/middleware"
	"github.com/easternmills/millops/pkg/storage"
)

type sampleRequest struct {
	Name    string `json:"name"`
	Buyer   string `json:"buyer,omitempty"`
	Status  string `json:"status,omitempty"`
	Quality string `json:"quality,omitempty"`
	SizeCm  string `json:"size_cm,omitempty"`
}

func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	samples, err := s.samples.ListSamples(r.Context(), r.URL.Query().Get("department"), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list samples")
		writeError(w, http.StatusInternalServerError, "failed to list samples")
		return
	}
	if samples == nil {
		samples = []*storage.Sample{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"samples": samples})
}

func (s *Server) getSample(w http.ResponseWriter, r *http.Request) {
	sample, err := s.samples.GetSample(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sample not found")
		return
	} else if err != nil {
		s.logger.WithError(err).Error("failed to fetch sample")
		writeError(w, http.StatusInternalServerError, "failed to fetch sample")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) createSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	status := req.Status
	if status == "" {
		status = "in_development"
	}
	var createdBy string
	if principal := middleware.GetPrincipal(r); principal != nil {
		createdBy = principal.SubjectID
	}

	sample := &storage.Sample{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Buyer:      req.Buyer,
		Department: access.DepartmentSampling,
		Status:     status,
		Quality:    req.Quality,
		SizeCm:     req.SizeCm,
		CreatedBy:  createdBy,
	}
	if err := s.samples.CreateSample(r.Context(), sample); err != nil {
		s.logger.WithError(err).Error("failed to create sample")
		writeError(w, http.StatusInternalServerError, "failed to create sample")
		return
	}
	writeJSON(w, http.StatusCreated, sample)
}

func (s *Server) updateSample(w http.ResponseWriter, r *http.Request) {
	sample, err := s.samples.GetSample(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sample not found")
		return
	} else if err != nil {
		s.logger.WithError(err).Error("failed to fetch sample")
		writeError(w, http.StatusInternalServerError, "failed to fetch sample")
		return
	}

	var req sampleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		sample.Name = req.Name
	}
	if req.Buyer != "" {
		sample.Buyer = req.Buyer
	}
	if req.Status != "" {
		sample.Status = req.Status
	}
	if req.Quality != "" {
		sample.Quality = req.Quality
	}
	if req.SizeCm != "" {
		sample.SizeCm = req.SizeCm
	}

	if err := s.samples.UpdateSample(r.Context(), sample); err != nil {
		s.logger.WithError(err).Error("failed to update sample")
		writeError(w, http.StatusInternalServerError, "failed to update sample")
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) deleteSample(w http.ResponseWriter, r *http.Request) {
	err := s.samples.DeleteSample(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "sample not found")
		return
	} else if err != nil {
		s.logger.WithError(err).Error("failed to delete sample")
		writeError(w, http.StatusInternalServerError, "failed to delete sample")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// pagination parses limit/offset query parameters with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
