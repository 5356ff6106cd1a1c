package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/audit"
	"github.com/easternmills/millops/pkg/middleware"
	"github.com/easternmills/millops/pkg/storage"
)

// maxDocumentSize caps PDOC uploads at 25 MiB.
const maxDocumentSize = 25 << 20

// canEditDepartmentDocs reports whether the caller may add or remove
// documents for a department: they need edit rights on at least one of the
// department's tabs.
func canEditDepartmentDocs(acc *access.Access, department string) bool {
	if !acc.CanAccessDepartment(department) {
		return false
	}
	for _, tab := range access.DepartmentTabs(department) {
		if acc.CanEdit(tab) {
			return true
		}
	}
	return false
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	acc := middleware.GetAccess(r)
	department := r.URL.Query().Get("department")
	if department == "" {
		writeError(w, http.StatusBadRequest, "department query parameter is required")
		return
	}
	if !acc.CanAccessDepartment(department) {
		s.denyDocument(r, department)
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	limit, offset := pagination(r)
	docs, err := s.docs.ListDocuments(r.Context(), department, limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("failed to list documents")
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*storage.DocumentMeta{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	acc := middleware.GetAccess(r)

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	department := r.FormValue("department")
	title := r.FormValue("title")
	if department == "" || title == "" {
		writeError(w, http.StatusBadRequest, "department and title are required")
		return
	}
	if !canEditDepartmentDocs(acc, department) {
		s.denyDocument(r, department)
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := uuid.New().String()
	storageKey := fmt.Sprintf("%s/%s", department, id)
	if err := s.blobs.Put(r.Context(), storageKey, io.LimitReader(file, maxDocumentSize), contentType); err != nil {
		s.logger.WithError(err).Error("failed to store document blob")
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	var uploadedBy string
	if principal := middleware.GetPrincipal(r); principal != nil {
		uploadedBy = principal.SubjectID
	}
	doc := &storage.DocumentMeta{
		ID:          id,
		Title:       title,
		DocNumber:   r.FormValue("doc_number"),
		Department:  department,
		StorageKey:  storageKey,
		ContentType: contentType,
		SizeBytes:   header.Size,
		UploadedBy:  uploadedBy,
	}
	if err := s.docs.CreateDocument(r.Context(), doc); err != nil {
		// Best-effort cleanup so metadata and blob do not drift apart.
		if delErr := s.blobs.Delete(r.Context(), storageKey); delErr != nil {
			s.logger.WithError(delErr).Warn("failed to clean up orphaned blob")
		}
		s.logger.WithError(err).Error("failed to store document metadata")
		writeError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	if s.metrics != nil {
		s.metrics.DocumentUploadsTotal.WithLabelValues(department).Inc()
		s.metrics.DocumentUploadedBytes.Add(float64(header.Size))
	}
	s.recordAudit(r, &audit.Event{
		SubjectID: uploadedBy,
		Action:    audit.ActionDocumentUpload,
		Resource:  storageKey,
		Detail:    title,
	})

	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) getDocumentMeta(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.fetchAuthorizedDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) downloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.fetchAuthorizedDocument(w, r)
	if !ok {
		return
	}

	reader, err := s.blobs.Get(r.Context(), doc.StorageKey)
	if err != nil {
		s.logger.WithError(err).Error("failed to fetch document blob")
		writeError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Title))
	io.Copy(w, reader)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.fetchAuthorizedDocument(w, r)
	if !ok {
		return
	}
	acc := middleware.GetAccess(r)
	if !canEditDepartmentDocs(acc, doc.Department) {
		s.denyDocument(r, doc.Department)
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	if err := s.docs.DeleteDocument(r.Context(), doc.ID); err != nil {
		s.logger.WithError(err).Error("failed to delete document metadata")
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	if err := s.blobs.Delete(r.Context(), doc.StorageKey); err != nil {
		s.logger.WithError(err).Warn("failed to delete document blob")
	}

	var subjectID string
	if principal := middleware.GetPrincipal(r); principal != nil {
		subjectID = principal.SubjectID
	}
	s.recordAudit(r, &audit.Event{
		SubjectID: subjectID,
		Action:    audit.ActionDocumentDelete,
		Resource:  doc.StorageKey,
		Detail:    doc.Title,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// fetchAuthorizedDocument loads the document and enforces department access.
// It writes the error response itself when returning ok=false.
func (s *Server) fetchAuthorizedDocument(w http.ResponseWriter, r *http.Request) (*storage.DocumentMeta, bool) {
	doc, err := s.docs.GetDocument(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	} else if err != nil {
		s.logger.WithError(err).Error("failed to fetch document")
		writeError(w, http.StatusInternalServerError, "failed to fetch document")
		return nil, false
	}

	if !middleware.GetAccess(r).CanAccessDepartment(doc.Department) {
		s.denyDocument(r, doc.Department)
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return nil, false
	}
	return doc, true
}

func (s *Server) denyDocument(r *http.Request, department string) {
	if s.metrics != nil {
		s.metrics.AccessDeniedTotal.WithLabelValues("documents").Inc()
	}
	var subjectID string
	if principal := middleware.GetPrincipal(r); principal != nil {
		subjectID = principal.SubjectID
	}
	s.recordAudit(r, &audit.Event{
		SubjectID: subjectID,
		Action:    audit.ActionAccessDenied,
		Resource:  "documents/" + department,
	})
}
