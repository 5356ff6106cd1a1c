package access

// Permission evaluation. Every function here is a pure decision over the
// value passed in: no I/O, no caching, no observable side effects, and all
// functions are total over nil input (nil denies, never panics). Staleness
// is bounded solely by how often the caller re-resolves its NormalizedUser.

// CanViewTab reports whether the user's tab list contains tabID.
func CanViewTab(user *NormalizedUser, tabID string) bool {
	if user == nil {
		return false
	}
	for _, tab := range user.Tabs {
		if tab == tabID {
			return true
		}
	}
	return false
}

// CanView reports whether the user may view the named resource. Edit and
// manage imply view.
func CanView(user *NormalizedUser, resource string) bool {
	return hasAnyPermission(user,
		VerbView+"_"+resource,
		VerbEdit+"_"+resource,
		VerbManage+"_"+resource,
	)
}

// CanEdit reports whether the user may edit the named resource. Manage
// implies edit.
func CanEdit(user *NormalizedUser, resource string) bool {
	return hasAnyPermission(user,
		VerbEdit+"_"+resource,
		VerbManage+"_"+resource,
	)
}

// CanManage reports whether the user may manage the named resource.
func CanManage(user *NormalizedUser, resource string) bool {
	return hasAnyPermission(user, VerbManage+"_"+resource)
}

// CanAccessDepartment reports whether the user may access the named
// department: their own department, the admin override, or explicit
// multi-department membership.
func CanAccessDepartment(user *NormalizedUser, department string) bool {
	if user == nil {
		return false
	}
	if user.Department == department || user.Department == DepartmentAdmin {
		return true
	}
	for _, d := range user.Departments {
		if d == department || d == DepartmentAdmin {
			return true
		}
	}
	return false
}

// CanAccessTab evaluates a catalog role against a (department, tab) pair.
// Used before a stored record exists. Within the role's home department the
// default triple applies; a cross-department grant yields view-only access
// to the tabs it lists; everything else is the all-false triple.
func CanAccessTab(role Role, department, tabID string) TabPermission {
	if role.Department == department {
		return role.DefaultTabs[tabID]
	}
	grant, ok := role.CrossDepartmentAccess[department]
	if !ok || !grant.CanView {
		return TabPermission{}
	}
	for _, tab := range grant.Tabs {
		if tab == tabID {
			return TabPermission{CanView: true}
		}
	}
	return TabPermission{}
}

// hasAnyPermission tests set membership for any of the given permission
// strings. The "*" marker grants everything; unknown strings simply miss.
func hasAnyPermission(user *NormalizedUser, wanted ...string) bool {
	if user == nil {
		return false
	}
	for _, have := range user.Permissions {
		if have == PermissionAll {
			return true
		}
		for _, want := range wanted {
			if have == want {
				return true
			}
		}
	}
	return false
}
