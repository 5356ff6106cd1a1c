package access

// Department identifiers. These scope a user's default access and key the
// metadata tables in metadata.go.
const (
	DepartmentQuality       = "quality"
	DepartmentSampling      = "sampling"
	DepartmentMerchandising = "merchandising"
	DepartmentProduction    = "production"
	DepartmentHR            = "hr"
	DepartmentAdmin         = "admin"
	DepartmentNone          = "none"
)

// Built-in role IDs.
const (
	RoleViewer             = "viewer"
	RoleEmployee           = "employee"
	RoleAdmin              = "admin"
	RoleQualityManager     = "quality_manager"
	RoleQualityInspector   = "quality_inspector"
	RoleSamplingSupervisor = "sampling_supervisor"
	RoleSamplingStaff      = "sampling_staff"
	RoleMerchandiser       = "merchandiser"
	RoleProductionPlanner  = "production_planner"
	RoleHRManager          = "hr_manager"
)

// catalog is the compiled-in role table. It is initialized once and never
// mutated, so it is safe to share across concurrent evaluations without
// locking. Changing it requires a redeploy, the same as the deriver rules.
var catalog = map[string]Role{
	RoleViewer: {
		ID:          RoleViewer,
		Name:        "Viewer",
		Department:  DepartmentNone,
		Tier:        TierStaff,
		Description: "Universal low-privilege fallback with no tab access",
	},
	RoleEmployee: {
		ID:          RoleEmployee,
		Name:        "Employee",
		Department:  DepartmentNone,
		Tier:        TierStaff,
		Description: "Baseline for organization addresses pending department assignment",
	},
	RoleAdmin: {
		ID:         RoleAdmin,
		Name:       "Administrator",
		Department: DepartmentAdmin,
		Tier:       TierManager,
		DefaultTabs: map[string]TabPermission{
			"users":    {CanView: true, CanEdit: true, CanAdmin: true},
			"settings": {CanView: true, CanEdit: true, CanAdmin: true},
		},
		CrossDepartmentAccess: map[string]CrossDepartmentGrant{
			DepartmentQuality:       {CanView: true, Tabs: []string{"dashboard", "compliance", "lab", "audits"}},
			DepartmentSampling:      {CanView: true, Tabs: []string{"create", "gallery", "costing"}},
			DepartmentMerchandising: {CanView: true, Tabs: []string{"orders", "buyers"}},
			DepartmentProduction:    {CanView: true, Tabs: []string{"schedule", "tracking"}},
			DepartmentHR:            {CanView: true, Tabs: []string{"employees", "attendance"}},
		},
	},
	RoleQualityManager: {
		ID:         RoleQualityManager,
		Name:       "Quality Manager",
		Department: DepartmentQuality,
		Tier:       TierManager,
		DefaultTabs: map[string]TabPermission{
			"dashboard":  {CanView: true, CanEdit: true, CanAdmin: true},
			"compliance": {CanView: true, CanEdit: true, CanAdmin: true},
			"lab":        {CanView: true, CanEdit: true, CanAdmin: true},
			"audits":     {CanView: true, CanEdit: true, CanAdmin: true},
		},
		CrossDepartmentAccess: map[string]CrossDepartmentGrant{
			DepartmentSampling: {CanView: true, Tabs: []string{"gallery"}},
		},
	},
	RoleQualityInspector: {
		ID:         RoleQualityInspector,
		Name:       "Quality Inspector",
		Department: DepartmentQuality,
		Tier:       TierStaff,
		DefaultTabs: map[string]TabPermission{
			"dashboard":  {CanView: true},
			"compliance": {CanView: true, CanEdit: true},
			"lab":        {CanView: true, CanEdit: true},
		},
	},
	RoleSamplingSupervisor: {
		ID:         RoleSamplingSupervisor,
		Name:       "Sampling Supervisor",
		Department: DepartmentSampling,
		Tier:       TierSupervisor,
		DefaultTabs: map[string]TabPermission{
			"create":  {CanView: true, CanEdit: true},
			"gallery": {CanView: true, CanEdit: true},
			"costing": {CanView: true, CanEdit: true},
		},
	},
	RoleSamplingStaff: {
		ID:         RoleSamplingStaff,
		Name:       "Sampling Staff",
		Department: DepartmentSampling,
		Tier:       TierStaff,
		DefaultTabs: map[string]TabPermission{
			"create":  {CanView: true},
			"gallery": {CanView: true},
		},
	},
	RoleMerchandiser: {
		ID:         RoleMerchandiser,
		Name:       "Merchandiser",
		Department: DepartmentMerchandising,
		Tier:       TierStaff,
		DefaultTabs: map[string]TabPermission{
			"orders": {CanView: true, CanEdit: true},
			"buyers": {CanView: true, CanEdit: true},
		},
		CrossDepartmentAccess: map[string]CrossDepartmentGrant{
			DepartmentSampling: {CanView: true, Tabs: []string{"gallery"}},
		},
	},
	RoleProductionPlanner: {
		ID:         RoleProductionPlanner,
		Name:       "Production Planner",
		Department: DepartmentProduction,
		Tier:       TierSupervisor,
		DefaultTabs: map[string]TabPermission{
			"schedule": {CanView: true, CanEdit: true},
			"tracking": {CanView: true, CanEdit: true},
		},
	},
	RoleHRManager: {
		ID:         RoleHRManager,
		Name:       "HR Manager",
		Department: DepartmentHR,
		Tier:       TierManager,
		DefaultTabs: map[string]TabPermission{
			"employees":  {CanView: true, CanEdit: true, CanAdmin: true},
			"attendance": {CanView: true, CanEdit: true},
		},
	},
}

// LookupRole returns the catalog entry for the given role ID. The boolean is
// false when no such role exists; callers that cannot tolerate a miss should
// fall back to FallbackRole rather than failing.
func LookupRole(roleID string) (Role, bool) {
	role, ok := catalog[roleID]
	return role, ok
}

// FallbackRole returns the universal low-privilege viewer role. Every code
// path that cannot resolve a role degrades to this value.
func FallbackRole() Role {
	return catalog[RoleViewer]
}

// Roles returns the IDs of all catalog roles. Intended for admin tooling and
// tests; the slice is freshly allocated on each call.
func Roles() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	return ids
}
