package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/audit"
	"github.com/easternmills/millops/pkg/documents"
	"github.com/easternmills/millops/pkg/identity"
	"github.com/easternmills/millops/pkg/observability"
	"github.com/easternmills/millops/pkg/storage/postgres"
)

type testServer struct {
	server   *Server
	store    *postgres.Store
	sessions *identity.Manager
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, postgres.RunMigrations(context.Background(), db))
	store := postgres.NewStore(db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sessions := identity.NewManager(identity.NewRedisSessionStore(client, "session"), time.Hour)
	blobs, err := documents.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	server := NewServer(Options{
		Users:       store.Users,
		Samples:     store.Samples,
		Orders:      store.Orders,
		Inspections: store.Inspections,
		Documents:   store.Documents,
		Blobs:       blobs,
		Sessions:    sessions,
		Resolver:    access.NewResolver(store.Users, nil, nil),
		Auditor:     audit.NewRecorder(db),
		Logger:      observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}),
	})

	return &testServer{server: server, store: store, sessions: sessions}
}

// signIn stores the record (if any) and issues a session for the principal.
func (ts *testServer) signIn(t *testing.T, record *access.StoredUserRecord, principal access.Principal) string {
	t.Helper()
	if record != nil {
		require.NoError(t, ts.store.Users.CreateUserRecord(context.Background(), record))
	}
	token, _, err := ts.sessions.Issue(context.Background(), principal, "test")
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	return rec
}

func samplingSupervisor() (*access.StoredUserRecord, access.Principal) {
	department := access.DepartmentSampling
	record := &access.StoredUserRecord{
		UID:         "uid-sup",
		Email:       "supervisor@easternmills.com",
		Department:  &department,
		Tabs:        []string{"create", "gallery"},
		Permissions: []string{"view_create", "edit_create", "view_gallery", "edit_gallery", "manage_gallery"},
		IsActive:    true,
	}
	return record, access.Principal{SubjectID: "uid-sup", Email: "supervisor@easternmills.com"}
}

func qualityInspector() (*access.StoredUserRecord, access.Principal) {
	department := access.DepartmentQuality
	record := &access.StoredUserRecord{
		UID:         "uid-qi",
		Email:       "inspector@easternmills.com",
		Department:  &department,
		Tabs:        []string{"dashboard", "compliance"},
		Permissions: []string{"view_dashboard", "view_compliance", "edit_compliance"},
		IsActive:    true,
	}
	return record, access.Principal{SubjectID: "uid-qi", Email: "inspector@easternmills.com"}
}

func adminUser() (*access.StoredUserRecord, access.Principal) {
	department := access.DepartmentAdmin
	role := access.RoleAdmin
	record := &access.StoredUserRecord{
		UID:         "uid-admin",
		Email:       "sysadmin@easternmills.com",
		Department:  &department,
		Tabs:        []string{"users", "settings"},
		Permissions: []string{access.PermissionAll},
		Role:        &role,
		IsActive:    true,
	}
	return record, access.Principal{SubjectID: "uid-admin", Email: "sysadmin@easternmills.com"}
}

func TestAPI_RequiresSession(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/me/access", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_MyAccess(t *testing.T) {
	ts := setupServer(t)
	record, principal := qualityInspector()
	token := ts.signIn(t, record, principal)

	rec := ts.do(t, http.MethodGet, "/api/v1/me/access", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp accessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "uid-qi", resp.UID)
	assert.ElementsMatch(t, []string{"dashboard", "compliance"}, resp.Tabs)
	require.NotNil(t, resp.Department)
	assert.Equal(t, access.DepartmentQuality, resp.Department.Department)
	assert.Equal(t, "Quality Assurance", resp.DepartmentName)
}

func TestAPI_DepartmentsVisibility(t *testing.T) {
	ts := setupServer(t)
	record, principal := qualityInspector()
	token := ts.signIn(t, record, principal)

	rec := ts.do(t, http.MethodGet, "/api/v1/meta/departments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Departments []departmentMeta `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Departments, 1)
	assert.Equal(t, access.DepartmentQuality, resp.Departments[0].ID)
}

func TestAPI_SampleLifecycle(t *testing.T) {
	ts := setupServer(t)
	record, principal := samplingSupervisor()
	token := ts.signIn(t, record, principal)

	rec := ts.do(t, http.MethodPost, "/api/v1/samples", token, sampleRequest{
		Name:  "EM-2451",
		Buyer: "RH",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "in_development", created.Status)

	rec = ts.do(t, http.MethodPut, "/api/v1/samples/"+created.ID, token, sampleRequest{Status: "approved"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/samples/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/samples/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CrossDepartmentDenied(t *testing.T) {
	ts := setupServer(t)
	record, principal := qualityInspector()
	token := ts.signIn(t, record, principal)

	// A quality inspector cannot touch sampling or merchandising routes.
	rec := ts.do(t, http.MethodGet, "/api/v1/samples", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/orders", token, orderRequest{OrderNumber: "PO-1", Buyer: "X"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// But inspections are theirs, including edits.
	rec = ts.do(t, http.MethodPost, "/api/v1/inspections", token, inspectionRequest{Kind: "compliance"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAPI_ViewWithoutEditDenied(t *testing.T) {
	ts := setupServer(t)
	department := access.DepartmentQuality
	record := &access.StoredUserRecord{
		UID:         "uid-view",
		Email:       "analyst@easternmills.com",
		Department:  &department,
		Tabs:        []string{"compliance"},
		Permissions: []string{"view_compliance"},
		IsActive:    true,
	}
	token := ts.signIn(t, record, access.Principal{SubjectID: "uid-view", Email: "analyst@easternmills.com"})

	rec := ts.do(t, http.MethodGet, "/api/v1/inspections", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/inspections", token, inspectionRequest{Kind: "lab"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_AdminUserManagement(t *testing.T) {
	ts := setupServer(t)
	adminRecord, adminPrincipal := adminUser()
	adminToken := ts.signIn(t, adminRecord, adminPrincipal)

	// Provision a target user with a legacy record.
	legacy := &access.StoredUserRecord{
		UID:                "uid-legacy",
		Email:              "legacy@easternmills.com",
		LegacyDepartmentID: "sampling",
		LegacyRole:         "supervisor",
	}
	require.NoError(t, ts.store.Users.CreateUserRecord(context.Background(), legacy))

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	role := access.RoleSamplingSupervisor
	department := access.DepartmentSampling
	rec = ts.do(t, http.MethodPut, "/api/v1/admin/users/uid-legacy", adminToken, updateUserRequest{
		Department:  &department,
		Role:        &role,
		Tabs:        []string{"create", "gallery"},
		Permissions: []string{"view_create", "edit_create", "view_gallery"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The stored record is now structured; the legacy fields are gone.
	updated, err := ts.store.Users.FetchUserRecord(context.Background(), "uid-legacy")
	require.NoError(t, err)
	assert.True(t, updated.IsStructured())
	assert.Empty(t, updated.LegacyDepartmentID)
	assert.Empty(t, updated.LegacyRole)

	rec = ts.do(t, http.MethodPut, "/api/v1/admin/users/uid-legacy", adminToken, map[string]string{"role": "warlord"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AdminRoutesDeniedForNonAdmin(t *testing.T) {
	ts := setupServer(t)
	record, principal := qualityInspector()
	token := ts.signIn(t, record, principal)

	rec := ts.do(t, http.MethodGet, "/api/v1/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/admin/audit", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_DocumentLifecycle(t *testing.T) {
	ts := setupServer(t)
	record, principal := qualityInspector()
	token := ts.signIn(t, record, principal)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("department", access.DepartmentQuality))
	require.NoError(t, writer.WriteField("title", "Compliance certificate"))
	part, err := writer.CreateFormFile("file", "cert.pdf")
	require.NoError(t, err)
	part.Write([]byte("pdf bytes"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var doc struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	rec = ts.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID+"/content", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdf bytes", rec.Body.String())

	// Another department's user cannot read it.
	supRecord, supPrincipal := samplingSupervisor()
	supToken := ts.signIn(t, supRecord, supPrincipal)
	rec = ts.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, supToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/documents/"+doc.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_UnknownTokenAfterRevoke(t *testing.T) {
	ts := setupServer(t)
	record, principal := qualityInspector()
	token := ts.signIn(t, record, principal)

	rec := ts.do(t, http.MethodPost, "/api/v1/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/me/access", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
