package access

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeRecordStore struct {
	byID    map[string]*StoredUserRecord
	byEmail map[string]*StoredUserRecord

	idErr    error
	emailErr error

	created []*StoredUserRecord
}

func (f *fakeRecordStore) FetchUserRecord(_ context.Context, subjectID string) (*StoredUserRecord, error) {
	if f.idErr != nil {
		return nil, f.idErr
	}
	return f.byID[subjectID], nil
}

func (f *fakeRecordStore) FetchUserRecordByEmail(_ context.Context, email string) (*StoredUserRecord, error) {
	if f.emailErr != nil {
		return nil, f.emailErr
	}
	return f.byEmail[email], nil
}

func (f *fakeRecordStore) CreateUserRecord(_ context.Context, record *StoredUserRecord) error {
	f.created = append(f.created, record)
	return nil
}

func testResolver(store RecordStore) *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(store, logger, nil)
}

func TestResolve_StoredRecordWins(t *testing.T) {
	store := &fakeRecordStore{
		byID: map[string]*StoredUserRecord{
			"u-1": {
				UID:         "u-1",
				Department:  strptr(DepartmentQuality),
				Tabs:        []string{"lab"},
				Permissions: []string{"view_lab"},
				Role:        strptr(TierStaff),
				IsActive:    true,
			},
		},
	}

	a := testResolver(store).Resolve(context.Background(), Principal{SubjectID: "u-1", Email: "x@example.com"})

	if !a.CanViewTab("lab") {
		t.Error("CanViewTab(lab) = false, want true")
	}
	if a.CanEdit("lab") {
		t.Error("CanEdit(lab) = true, want false")
	}
	if !a.CanAccessDepartment(DepartmentQuality) {
		t.Error("CanAccessDepartment(quality) = false, want true")
	}
	if a.CanAccessDepartment(DepartmentSampling) {
		t.Error("CanAccessDepartment(sampling) = true, want false")
	}
	if len(store.created) != 0 {
		t.Errorf("provisioned %d records, want 0", len(store.created))
	}
}

func TestResolve_EmailLookupFallback(t *testing.T) {
	store := &fakeRecordStore{
		byEmail: map[string]*StoredUserRecord{
			"worker@easternmills.com": {
				UID:         "old-key",
				Email:       "worker@easternmills.com",
				Department:  strptr(DepartmentSampling),
				Tabs:        []string{"gallery"},
				Permissions: []string{"view_gallery"},
				IsActive:    true,
			},
		},
	}

	a := testResolver(store).Resolve(context.Background(), Principal{
		SubjectID: "new-key",
		Email:     "worker@easternmills.com",
	})

	if !a.CanViewTab("gallery") {
		t.Error("record found by email not used")
	}
	if len(store.created) != 0 {
		t.Errorf("provisioned %d records despite email hit, want 0", len(store.created))
	}
}

// Double miss: derived role drives access and a deny-by-default record is
// provisioned exactly once.
func TestResolve_DoubleMissDerivesAndProvisions(t *testing.T) {
	store := &fakeRecordStore{}
	principal := Principal{SubjectID: "u-9", Email: "abdulansari@easternmills.com"}

	a := testResolver(store).Resolve(context.Background(), principal)

	if !a.HasRole(RoleAdmin) {
		t.Error("HasRole(admin) = false, want true")
	}
	if !a.CanAccessDepartment(DepartmentHR) {
		t.Error("admin-derived user denied hr department")
	}

	if len(store.created) != 1 {
		t.Fatalf("provisioned %d records, want 1", len(store.created))
	}
	created := store.created[0]
	if created.UID != "u-9" {
		t.Errorf("created UID = %q, want u-9", created.UID)
	}
	if created.IsActive {
		t.Error("provisioned record is active, want deny-by-default")
	}
	if len(created.Tabs) != 0 || len(created.Permissions) != 0 {
		t.Errorf("provisioned record has grants: tabs=%v perms=%v", created.Tabs, created.Permissions)
	}
	if !created.IsStructured() {
		t.Error("provisioned record is not structured shape")
	}
}

func TestResolve_UnknownExternalUserDeniesAll(t *testing.T) {
	store := &fakeRecordStore{}

	a := testResolver(store).Resolve(context.Background(), Principal{
		SubjectID: "u-ext",
		Email:     "stranger@example.com",
	})

	if tabs := a.AccessibleTabs(); len(tabs) != 0 {
		t.Errorf("AccessibleTabs = %v, want empty", tabs)
	}
	for _, resource := range []string{"lab", "orders", "settings"} {
		if a.CanView(resource) || a.CanEdit(resource) {
			t.Errorf("external user allowed on %q", resource)
		}
	}
	if info := a.DepartmentInfo(); info != nil {
		t.Errorf("DepartmentInfo = %+v, want nil", info)
	}
}

// A repository outage must deny (not crash) and must not provision, so the
// record is not duplicated once the repository recovers.
func TestResolve_LookupErrorFailsClosedWithoutProvisioning(t *testing.T) {
	store := &fakeRecordStore{idErr: errors.New("connection refused")}

	a := testResolver(store).Resolve(context.Background(), Principal{
		SubjectID: "u-1",
		Email:     "worker@easternmills.com",
	})

	if a == nil {
		t.Fatal("Resolve returned nil")
	}
	if a.CanViewTab("lab") {
		t.Error("access granted during repository outage")
	}
	if len(store.created) != 0 {
		t.Errorf("provisioned %d records during outage, want 0", len(store.created))
	}
}

func TestResolve_NilStoreDegradesToDerivedRole(t *testing.T) {
	a := testResolver(nil).Resolve(context.Background(), Principal{Email: "sampling@easternmills.com"})
	if !a.HasRole(RoleSamplingSupervisor) {
		t.Errorf("role = %q, want %q", a.Role().ID, RoleSamplingSupervisor)
	}
}

func TestNoAccess(t *testing.T) {
	a := NoAccess()
	if len(a.AccessibleTabs()) != 0 {
		t.Error("NoAccess has accessible tabs")
	}
	if a.CanView("lab") || a.CanEdit("lab") || a.CanManage("lab") {
		t.Error("NoAccess grants permissions")
	}
	if a.DepartmentInfo() != nil {
		t.Error("NoAccess has department info")
	}
	if !a.HasRole(RoleViewer) {
		t.Error("NoAccess is not the viewer role")
	}
}

func TestAccess_NilReceiverIsTotal(t *testing.T) {
	var a *Access
	if a.CanViewTab("lab") || a.CanView("lab") || a.CanEdit("lab") || a.CanManage("lab") {
		t.Error("nil Access granted access")
	}
	if a.CanAccessDepartment(DepartmentQuality) {
		t.Error("nil Access granted department access")
	}
	if tabs := a.AccessibleTabs(); tabs == nil || len(tabs) != 0 {
		t.Errorf("nil Access AccessibleTabs = %v, want empty non-nil", tabs)
	}
	if a.DepartmentInfo() != nil {
		t.Error("nil Access has department info")
	}
	if a.HasRole(RoleViewer) {
		t.Error("nil Access has a role")
	}
}

func TestAccess_DepartmentInfo(t *testing.T) {
	user := NormalizedUser{
		Department:    DepartmentQuality,
		SubDepartment: "lab",
		Role:          TierStaff,
		Tabs:          []string{},
		Permissions:   []string{},
	}
	a := newAccess(user, FallbackRole())

	info := a.DepartmentInfo()
	if info == nil {
		t.Fatal("DepartmentInfo = nil, want value")
	}
	if info.Department != DepartmentQuality || info.SubDepartment != "lab" || info.Role != TierStaff {
		t.Errorf("DepartmentInfo = %+v", info)
	}
}
