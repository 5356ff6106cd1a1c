package access

import "sort"

// LegacyDefaults is the policy applied when a legacy-shape record is missing
// its department or role fields, plus the per-department tab table used to
// synthesize tabs and permissions for legacy records.
type LegacyDefaults struct {
	// Department assumed when no department field is present.
	Department string
	// Role string assumed when no role field is present.
	Role string
	// DepartmentTabs maps a department to the tabs granted to its legacy
	// users. Departments absent from the table synthesize no tabs.
	DepartmentTabs map[string][]string
}

// LegacyPolicy is the active legacy-coercion policy. The quality/staff
// defaults mirror what the historical records implied; they are exposed as a
// variable rather than constants because product has not confirmed them as
// intentional business rules.
var LegacyPolicy = LegacyDefaults{
	Department: DepartmentQuality,
	Role:       TierStaff,
	DepartmentTabs: map[string][]string{
		DepartmentQuality:       {"dashboard", "compliance"},
		DepartmentSampling:      {"create", "gallery"},
		DepartmentMerchandising: {"orders", "buyers"},
		DepartmentProduction:    {"schedule", "tracking"},
		DepartmentHR:            {"employees", "attendance"},
	},
}

// Normalize projects a stored user record of either historical shape onto
// the canonical NormalizedUser. It never fails: a nil record is built
// entirely from the fallback role, a structured record passes through
// unchanged, and a legacy record is coerced using LegacyPolicy. The output
// always carries non-nil Tabs and Permissions.
func Normalize(stored *StoredUserRecord, fallback Role) NormalizedUser {
	if stored == nil {
		return userFromRole(fallback)
	}
	if stored.IsStructured() {
		return structuredUser(stored)
	}
	return legacyUser(stored)
}

// userFromRole synthesizes a NormalizedUser from a catalog role. Used when
// no stored record exists yet. The user is inactive: role derivation grants
// a shape, not an activation.
func userFromRole(role Role) NormalizedUser {
	tabs := make([]string, 0, len(role.DefaultTabs))
	for tab, perm := range role.DefaultTabs {
		if perm.CanView {
			tabs = append(tabs, tab)
		}
	}
	sort.Strings(tabs)

	permissions := make([]string, 0, len(tabs)*2)
	for _, tab := range tabs {
		perm := role.DefaultTabs[tab]
		if perm.CanView {
			permissions = append(permissions, VerbView+"_"+tab)
		}
		if perm.CanEdit {
			permissions = append(permissions, VerbEdit+"_"+tab)
		}
		if perm.CanAdmin {
			permissions = append(permissions, VerbManage+"_"+tab)
		}
	}

	return NormalizedUser{
		Department:  role.Department,
		Tabs:        tabs,
		Permissions: permissions,
		Role:        role.ID,
		IsActive:    false,
	}
}

// structuredUser is the identity projection for structured-shape records.
func structuredUser(stored *StoredUserRecord) NormalizedUser {
	user := NormalizedUser{
		UID:         stored.UID,
		Email:       stored.Email,
		Department:  *stored.Department,
		Departments: copyStrings(stored.Departments),
		Tabs:        copyStrings(stored.Tabs),
		Permissions: copyStrings(stored.Permissions),
		IsActive:    stored.IsActive,
	}
	if stored.SubDepartment != nil {
		user.SubDepartment = *stored.SubDepartment
	}
	if stored.Role != nil {
		user.Role = *stored.Role
	}
	return user
}

// legacyUser coerces a legacy flat record. Department comes from the first
// present of DepartmentId, department_id, department; the role string from
// Role, then role. Edit verbs are granted only to the supervisor tier.
func legacyUser(stored *StoredUserRecord) NormalizedUser {
	department := firstNonEmpty(
		stored.LegacyDepartmentID,
		stored.LegacyDepartmentKey,
		deref(stored.Department),
		LegacyPolicy.Department,
	)
	role := firstNonEmpty(
		stored.LegacyRole,
		deref(stored.Role),
		LegacyPolicy.Role,
	)

	tabs := copyStrings(stored.LegacyAllowedTabs)
	if len(tabs) == 0 {
		tabs = copyStrings(LegacyPolicy.DepartmentTabs[department])
	}
	if tabs == nil {
		tabs = []string{}
	}

	permissions := make([]string, 0, len(tabs)*2)
	for _, tab := range tabs {
		permissions = append(permissions, VerbView+"_"+tab)
		if role == TierSupervisor {
			permissions = append(permissions, VerbEdit+"_"+tab)
		}
	}

	active := true
	if stored.LegacyIsAuthorized != nil {
		active = *stored.LegacyIsAuthorized
	}

	return NormalizedUser{
		UID:         stored.UID,
		Email:       stored.Email,
		Department:  department,
		Tabs:        tabs,
		Permissions: permissions,
		Role:        role,
		IsActive:    active,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
