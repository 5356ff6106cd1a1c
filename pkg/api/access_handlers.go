package api

import (
	"net/http"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/middleware"
)

type accessResponse struct {
	UID            string                 `json:"uid"`
	Email          string                 `json:"email"`
	Role           string                 `json:"role"`
	IsActive       bool                   `json:"is_active"`
	Tabs           []string               `json:"tabs"`
	Permissions    []string               `json:"permissions"`
	Department     *access.DepartmentInfo `json:"department,omitempty"`
	DepartmentName string                 `json:"department_name,omitempty"`
}

// myAccess returns the caller's resolved access: the tabs they may see, the
// permissions they hold, and their department summary. The frontend renders
// navigation from this single response.
func (s *Server) myAccess(w http.ResponseWriter, r *http.Request) {
	acc := middleware.GetAccess(r)
	user := acc.User()

	resp := accessResponse{
		UID:         user.UID,
		Email:       user.Email,
		Role:        user.Role,
		IsActive:    user.IsActive,
		Tabs:        acc.AccessibleTabs(),
		Permissions: append([]string{}, user.Permissions...),
	}
	if info := acc.DepartmentInfo(); info != nil {
		resp.Department = info
		resp.DepartmentName = access.DepartmentName(info.Department)
	}

	writeJSON(w, http.StatusOK, resp)
}

type departmentMeta struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Tabs []tabMeta `json:"tabs"`
}

type tabMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// listDepartments returns the department and tab metadata the caller can
// access. Departments the caller cannot enter are omitted entirely.
func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) {
	acc := middleware.GetAccess(r)

	all := []string{
		access.DepartmentQuality,
		access.DepartmentSampling,
		access.DepartmentMerchandising,
		access.DepartmentProduction,
		access.DepartmentHR,
		access.DepartmentAdmin,
	}

	var visible []departmentMeta
	for _, dept := range all {
		if !acc.CanAccessDepartment(dept) {
			continue
		}
		meta := departmentMeta{
			ID:   dept,
			Name: access.DepartmentName(dept),
			Tabs: []tabMeta{},
		}
		for _, tab := range access.DepartmentTabs(dept) {
			meta.Tabs = append(meta.Tabs, tabMeta{
				ID:   tab,
				Name: access.TabName(dept, tab),
			})
		}
		visible = append(visible, meta)
	}
	if visible == nil {
		visible = []departmentMeta{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"departments": visible})
}
