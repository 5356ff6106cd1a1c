package access

import "testing"

func TestEvaluate_NilUserDeniesEverything(t *testing.T) {
	if CanViewTab(nil, "lab") {
		t.Error("CanViewTab(nil) = true, want false")
	}
	if CanView(nil, "lab") {
		t.Error("CanView(nil) = true, want false")
	}
	if CanEdit(nil, "lab") {
		t.Error("CanEdit(nil) = true, want false")
	}
	if CanManage(nil, "lab") {
		t.Error("CanManage(nil) = true, want false")
	}
	if CanAccessDepartment(nil, DepartmentQuality) {
		t.Error("CanAccessDepartment(nil) = true, want false")
	}
}

// Scenario: a structured quality staff record with a single view permission.
func TestEvaluate_QualityStaffRecord(t *testing.T) {
	user := &NormalizedUser{
		Department:  DepartmentQuality,
		Tabs:        []string{"lab"},
		Permissions: []string{"view_lab"},
		Role:        TierStaff,
		IsActive:    true,
	}

	if !CanViewTab(user, "lab") {
		t.Error("CanViewTab(lab) = false, want true")
	}
	if CanEdit(user, "lab") {
		t.Error("CanEdit(lab) = true, want false")
	}
	if !CanAccessDepartment(user, DepartmentQuality) {
		t.Error("CanAccessDepartment(quality) = false, want true")
	}
	if CanAccessDepartment(user, DepartmentSampling) {
		t.Error("CanAccessDepartment(sampling) = true, want false")
	}
}

func TestEvaluate_VerbImplicationChain(t *testing.T) {
	tests := []struct {
		name        string
		permissions []string
		view, edit  bool
		manage      bool
	}{
		{"view only", []string{"view_quality"}, true, false, false},
		{"edit implies view", []string{"edit_quality"}, true, true, false},
		{"manage implies all", []string{"manage_quality"}, true, true, true},
		{"wildcard implies all", []string{PermissionAll}, true, true, true},
		{"unrelated resource", []string{"manage_orders"}, false, false, false},
		{"empty", []string{}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &NormalizedUser{Permissions: tt.permissions}
			if got := CanView(user, "quality"); got != tt.view {
				t.Errorf("CanView = %v, want %v", got, tt.view)
			}
			if got := CanEdit(user, "quality"); got != tt.edit {
				t.Errorf("CanEdit = %v, want %v", got, tt.edit)
			}
			if got := CanManage(user, "quality"); got != tt.manage {
				t.Errorf("CanManage = %v, want %v", got, tt.manage)
			}
		})
	}
}

// canManage => canEdit => canView must hold for every permission set.
func TestEvaluate_Monotonicity(t *testing.T) {
	permissionSets := [][]string{
		{},
		{"view_a"},
		{"edit_a"},
		{"manage_a"},
		{"view_a", "manage_b"},
		{PermissionAll},
		{"manage_a", "manage_a"}, // duplicates are harmless
		{"garbage", "view"},
	}
	resources := []string{"a", "b", "c", ""}

	for _, perms := range permissionSets {
		user := &NormalizedUser{Permissions: perms}
		for _, res := range resources {
			if CanManage(user, res) && !CanEdit(user, res) {
				t.Errorf("perms %v resource %q: manage without edit", perms, res)
			}
			if CanEdit(user, res) && !CanView(user, res) {
				t.Errorf("perms %v resource %q: edit without view", perms, res)
			}
		}
	}
}

func TestEvaluate_AdminDepartmentOverride(t *testing.T) {
	departments := []string{DepartmentQuality, DepartmentSampling, DepartmentHR, "anything"}

	own := &NormalizedUser{Department: DepartmentAdmin}
	member := &NormalizedUser{
		Department:  DepartmentQuality,
		Departments: []string{DepartmentAdmin},
	}

	for _, d := range departments {
		if !CanAccessDepartment(own, d) {
			t.Errorf("admin department user denied %q", d)
		}
		if !CanAccessDepartment(member, d) {
			t.Errorf("admin membership user denied %q", d)
		}
	}
}

func TestEvaluate_MultiDepartmentMembership(t *testing.T) {
	user := &NormalizedUser{
		Department:  DepartmentQuality,
		Departments: []string{DepartmentSampling},
	}
	if !CanAccessDepartment(user, DepartmentSampling) {
		t.Error("membership list department denied")
	}
	if CanAccessDepartment(user, DepartmentHR) {
		t.Error("unlisted department allowed")
	}
}

func TestCanAccessTab_HomeDepartment(t *testing.T) {
	role, _ := LookupRole(RoleQualityManager)

	got := CanAccessTab(role, DepartmentQuality, "lab")
	if !got.CanView || !got.CanEdit || !got.CanAdmin {
		t.Errorf("home department triple = %+v, want all true", got)
	}

	if got := CanAccessTab(role, DepartmentQuality, "nonexistent"); got != (TabPermission{}) {
		t.Errorf("unknown tab triple = %+v, want all false", got)
	}
}

func TestCanAccessTab_CrossDepartmentIsViewOnly(t *testing.T) {
	role, _ := LookupRole(RoleQualityManager)

	got := CanAccessTab(role, DepartmentSampling, "gallery")
	if !got.CanView {
		t.Error("granted cross-department tab not viewable")
	}
	if got.CanEdit || got.CanAdmin {
		t.Errorf("cross-department access must be view-only, got %+v", got)
	}
}

func TestCanAccessTab_CrossDepartmentTabIsolation(t *testing.T) {
	role, _ := LookupRole(RoleQualityManager)

	// "create" is not in the quality manager's sampling grant.
	if got := CanAccessTab(role, DepartmentSampling, "create"); got.CanView {
		t.Errorf("unlisted cross-department tab viewable: %+v", got)
	}
	// No grant for HR at all.
	if got := CanAccessTab(role, DepartmentHR, "employees"); got.CanView {
		t.Errorf("ungranted department viewable: %+v", got)
	}
}

func TestCanAccessTab_ViewerDeniesEverything(t *testing.T) {
	viewer := FallbackRole()
	for _, d := range []string{DepartmentQuality, DepartmentSampling, DepartmentNone} {
		for _, tab := range []string{"lab", "create", "dashboard"} {
			if got := CanAccessTab(viewer, d, tab); got != (TabPermission{}) {
				t.Errorf("viewer CanAccessTab(%s, %s) = %+v, want all false", d, tab, got)
			}
		}
	}
}

func TestEvaluate_UnknownStringsReturnFalse(t *testing.T) {
	user := &NormalizedUser{
		Tabs:        []string{"lab"},
		Permissions: []string{"view_lab"},
	}
	if CanViewTab(user, "no-such-tab") {
		t.Error("unknown tab allowed")
	}
	if CanView(user, "no-such-resource") {
		t.Error("unknown resource allowed")
	}
}
