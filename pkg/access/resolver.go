package access

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// RecordStore is the repository boundary the resolver consumes. The core
// never initiates I/O beyond these three calls and treats every failure as a
// lookup miss (fail closed).
type RecordStore interface {
	// FetchUserRecord looks a record up by its primary key.
	FetchUserRecord(ctx context.Context, subjectID string) (*StoredUserRecord, error)

	// FetchUserRecordByEmail is the secondary lookup path, tolerating
	// records created under a different key scheme.
	FetchUserRecordByEmail(ctx context.Context, email string) (*StoredUserRecord, error)

	// CreateUserRecord provisions a new record. The resolver calls it
	// exactly once, only when both lookups miss cleanly.
	CreateUserRecord(ctx context.Context, record *StoredUserRecord) error
}

// ResolverMetrics carries the optional counters the resolver increments.
// Any field may be nil.
type ResolverMetrics struct {
	// Resolutions counts resolutions by outcome: record, email, fallback.
	Resolutions *prometheus.CounterVec
	// Provisioned counts deny-by-default records created for first sign-ins.
	Provisioned prometheus.Counter
}

// Resolver turns an authenticated principal into an Access value by fetching
// the stored record, normalizing it, and falling back to the email-derived
// role when no record resolves.
type Resolver struct {
	store   RecordStore
	logger  logrus.FieldLogger
	metrics *ResolverMetrics
}

// NewResolver creates a resolver. store may be nil, in which case every
// resolution degrades to the derived-role fallback. logger may be nil.
func NewResolver(store RecordStore, logger logrus.FieldLogger, metrics *ResolverMetrics) *Resolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{store: store, logger: logger, metrics: metrics}
}

// Resolve returns the Access for a principal. It never returns nil and never
// fails: repository errors are logged, counted, and treated as misses so an
// outage denies access rather than granting or crashing.
func (r *Resolver) Resolve(ctx context.Context, principal Principal) *Access {
	derived := DeriveRole(principal.Email)

	if r.store == nil {
		r.count("fallback")
		return newAccess(Normalize(nil, derived), derived)
	}

	lookupFailed := false

	record, err := r.store.FetchUserRecord(ctx, principal.SubjectID)
	if err != nil {
		lookupFailed = true
		r.logger.WithError(err).WithField("subject_id", principal.SubjectID).
			Warn("user record lookup failed, denying by fallback")
	}

	if record == nil && !lookupFailed && principal.Email != "" {
		record, err = r.store.FetchUserRecordByEmail(ctx, principal.Email)
		if err != nil {
			lookupFailed = true
			r.logger.WithError(err).WithField("email", principal.Email).
				Warn("user record email lookup failed, denying by fallback")
		}
	}

	if record == nil {
		// Provision a deny-by-default record on a clean double miss so an
		// administrator can assign access later. Never on lookup failure,
		// to avoid duplicate records once the repository recovers.
		if !lookupFailed && principal.SubjectID != "" {
			r.provision(ctx, principal, derived)
		}
		r.count("fallback")
		return newAccess(Normalize(nil, derived), derived)
	}

	r.count("record")
	return newAccess(Normalize(record, derived), derived)
}

func (r *Resolver) provision(ctx context.Context, principal Principal, derived Role) {
	department := DepartmentNone
	record := &StoredUserRecord{
		UID:         principal.SubjectID,
		Email:       principal.Email,
		Department:  &department,
		Tabs:        []string{},
		Permissions: []string{},
		Role:        &derived.ID,
		IsActive:    false,
	}
	if err := r.store.CreateUserRecord(ctx, record); err != nil {
		r.logger.WithError(err).WithField("subject_id", principal.SubjectID).
			Warn("failed to provision user record")
		return
	}
	if r.metrics != nil && r.metrics.Provisioned != nil {
		r.metrics.Provisioned.Inc()
	}
	r.logger.WithFields(logrus.Fields{
		"subject_id": principal.SubjectID,
		"email":      principal.Email,
	}).Info("provisioned deny-by-default user record")
}

func (r *Resolver) count(outcome string) {
	if r.metrics != nil && r.metrics.Resolutions != nil {
		r.metrics.Resolutions.WithLabelValues(outcome).Inc()
	}
}

// Access binds a resolved NormalizedUser and its derived catalog role behind
// the query surface consumers use. All methods are synchronous, side-effect
// free, total over a nil receiver, and safe to call on every render.
type Access struct {
	user NormalizedUser
	role Role
}

func newAccess(user NormalizedUser, role Role) *Access {
	return &Access{user: user, role: role}
}

// NoAccess returns the deny-everything Access used for unauthenticated
// requests.
func NoAccess() *Access {
	fallback := FallbackRole()
	return newAccess(Normalize(nil, fallback), fallback)
}

// User returns the resolved NormalizedUser value.
func (a *Access) User() *NormalizedUser {
	if a == nil {
		return nil
	}
	return &a.user
}

// Role returns the catalog role derived for the principal's email.
func (a *Access) Role() Role {
	if a == nil {
		return FallbackRole()
	}
	return a.role
}

// CanViewTab reports whether the user may see the given tab.
func (a *Access) CanViewTab(tabID string) bool {
	return CanViewTab(a.User(), tabID)
}

// CanView reports view access to a named resource.
func (a *Access) CanView(resource string) bool {
	return CanView(a.User(), resource)
}

// CanEdit reports edit access to a named resource.
func (a *Access) CanEdit(resource string) bool {
	return CanEdit(a.User(), resource)
}

// CanManage reports manage access to a named resource.
func (a *Access) CanManage(resource string) bool {
	return CanManage(a.User(), resource)
}

// CanAccessDepartment reports whether the user may access a department.
func (a *Access) CanAccessDepartment(department string) bool {
	return CanAccessDepartment(a.User(), department)
}

// AccessibleTabs returns a copy of the user's viewable tabs, never nil.
func (a *Access) AccessibleTabs() []string {
	if a == nil {
		return []string{}
	}
	tabs := make([]string, len(a.user.Tabs))
	copy(tabs, a.user.Tabs)
	return tabs
}

// DepartmentInfo returns the user's department summary, or nil when no
// department is assigned.
func (a *Access) DepartmentInfo() *DepartmentInfo {
	if a == nil || a.user.Department == "" || a.user.Department == DepartmentNone {
		return nil
	}
	return &DepartmentInfo{
		Department:    a.user.Department,
		SubDepartment: a.user.SubDepartment,
		Role:          a.user.Role,
	}
}

// HasRole reports whether the user's stored role or derived catalog role
// matches the given name.
func (a *Access) HasRole(name string) bool {
	if a == nil {
		return false
	}
	return a.user.Role == name || a.role.ID == name
}
