package access

// Principal holds the identity yielded by the identity provider for an
// authenticated session. It is transient and never persisted by this package.
type Principal struct {
	SubjectID   string `json:"subject_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// TabPermission is the per-tab permission triple carried by catalog roles.
type TabPermission struct {
	CanView  bool `json:"can_view"`
	CanEdit  bool `json:"can_edit"`
	CanAdmin bool `json:"can_admin"`
}

// CrossDepartmentGrant allows a role to view (never edit) a subset of another
// department's tabs. An empty Tabs list grants no tabs.
type CrossDepartmentGrant struct {
	CanView bool     `json:"can_view"`
	Tabs    []string `json:"tabs,omitempty"`
}

// Role is an immutable catalog entry. Roles are defined at build time and
// looked up, never mutated at runtime.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	Tier        string `json:"tier"`
	Description string `json:"description,omitempty"`

	// DefaultTabs maps tab ID to the permission triple granted by default.
	DefaultTabs map[string]TabPermission `json:"default_tabs,omitempty"`

	// CrossDepartmentAccess maps a foreign department to a view-only grant.
	CrossDepartmentAccess map[string]CrossDepartmentGrant `json:"cross_department_access,omitempty"`
}

// Tier names used by catalog roles and legacy records.
const (
	TierStaff      = "staff"
	TierSupervisor = "supervisor"
	TierManager    = "manager"
)

// StoredUserRecord is the persisted user document as the repository returns
// it. Documents exist in one of two historical shapes: a structured shape
// (Department set, Tabs and Permissions non-nil) and a legacy flat shape
// where department and role hide under inconsistently cased ad-hoc fields.
// Normalize reconciles both; nothing else in the codebase may interpret the
// legacy fields.
type StoredUserRecord struct {
	UID           string   `json:"uid,omitempty"`
	Email         string   `json:"email,omitempty"`
	Department    *string  `json:"department,omitempty"`
	SubDepartment *string  `json:"subDepartment,omitempty"`
	Departments   []string `json:"departments,omitempty"`
	// Tabs, Permissions and IsActive must never carry omitempty: a
	// deny-by-default record is exactly empty arrays plus false, and
	// dropping them from the encoding would turn the record legacy-shaped
	// on the next read.
	Tabs        []string `json:"tabs"`
	Permissions []string `json:"permissions"`
	Role        *string  `json:"role,omitempty"`
	IsActive    bool     `json:"isActive"`

	// Legacy flat fields found in pre-migration documents.
	LegacyDepartmentID  string   `json:"DepartmentId,omitempty"`
	LegacyDepartmentKey string   `json:"department_id,omitempty"`
	LegacyRole          string   `json:"Role,omitempty"`
	LegacyAllowedTabs   []string `json:"allowedTabs,omitempty"`
	LegacyIsAuthorized  *bool    `json:"isAuthorized,omitempty"`
}

// IsStructured reports whether the record follows the structured shape:
// department is a string and tabs/permissions are both arrays.
func (r *StoredUserRecord) IsStructured() bool {
	if r == nil {
		return false
	}
	return r.Department != nil && r.Tabs != nil && r.Permissions != nil
}

// NormalizedUser is the canonical value the evaluator consumes. It is a
// projection derived fresh from the stored record on every read, never
// persisted separately. Tabs and Permissions are always non-nil.
type NormalizedUser struct {
	UID           string   `json:"uid"`
	Email         string   `json:"email"`
	Department    string   `json:"department"`
	SubDepartment string   `json:"sub_department,omitempty"`
	Departments   []string `json:"departments,omitempty"`
	Tabs          []string `json:"tabs"`
	Permissions   []string `json:"permissions"`
	Role          string   `json:"role"`
	IsActive      bool     `json:"is_active"`
}

// DepartmentInfo is the read-only department summary exposed to consumers.
type DepartmentInfo struct {
	Department    string `json:"department"`
	SubDepartment string `json:"sub_department,omitempty"`
	Role          string `json:"role"`
}

// Permission verbs. Permission strings are convention-encoded as
// "<verb>_<resource>"; membership is tested, never counted, so duplicates in
// a permission list are harmless.
const (
	VerbView   = "view"
	VerbEdit   = "edit"
	VerbManage = "manage"
)

// PermissionAll is the literal all-permissions marker. The evaluator treats
// it as a first-class wildcard in every verb check.
const PermissionAll = "*"
