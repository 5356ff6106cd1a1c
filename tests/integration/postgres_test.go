package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/easternmills/millops/pkg/access"
	"github.com/easternmills/millops/pkg/audit"
	"github.com/easternmills/millops/pkg/storage"
	"github.com/easternmills/millops/pkg/storage/postgres"
)

// setupPostgres starts a throwaway PostgreSQL container and returns a
// migrated store. Skips when Docker is unavailable.
func setupPostgres(t *testing.T) (*postgres.Store, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("millops_test"),
		tcpostgres.WithUsername("millops"),
		tcpostgres.WithPassword("millops_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	require.NoError(t, postgres.RunMigrations(ctx, db))
	return postgres.NewStore(db), db
}

func TestUserRecordRoundTripPostgres(t *testing.T) {
	store, _ := setupPostgres(t)
	ctx := context.Background()

	department := access.DepartmentQuality
	structured := &access.StoredUserRecord{
		UID:         "uid-structured",
		Email:       "inspector@easternmills.com",
		Department:  &department,
		Tabs:        []string{"dashboard", "compliance"},
		Permissions: []string{"view_dashboard", "view_compliance", "edit_compliance"},
		IsActive:    true,
	}
	require.NoError(t, store.Users.CreateUserRecord(ctx, structured))

	fetched, err := store.Users.FetchUserRecord(ctx, "uid-structured")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.True(t, fetched.IsStructured())
	assert.Equal(t, structured.Tabs, fetched.Tabs)
	assert.Equal(t, structured.Permissions, fetched.Permissions)

	byEmail, err := store.Users.FetchUserRecordByEmail(ctx, "inspector@easternmills.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "uid-structured", byEmail.UID)

	// Legacy flat records survive storage verbatim.
	legacy := &access.StoredUserRecord{
		UID:                "uid-legacy",
		Email:              "supervisor@easternmills.com",
		LegacyDepartmentID: "sampling",
		LegacyRole:         "supervisor",
	}
	require.NoError(t, store.Users.CreateUserRecord(ctx, legacy))

	fetched, err = store.Users.FetchUserRecord(ctx, "uid-legacy")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.False(t, fetched.IsStructured())
	assert.Equal(t, "sampling", fetched.LegacyDepartmentID)
	assert.Equal(t, "supervisor", fetched.LegacyRole)
}

func TestResolverOverPostgres(t *testing.T) {
	store, _ := setupPostgres(t)
	ctx := context.Background()
	resolver := access.NewResolver(store.Users, nil, nil)

	// A legacy sampling supervisor resolves to the department's tab set with
	// edit verbs.
	legacy := &access.StoredUserRecord{
		UID:                "uid-sup",
		Email:              "supervisor@easternmills.com",
		LegacyDepartmentID: "sampling",
		LegacyRole:         "supervisor",
	}
	require.NoError(t, store.Users.CreateUserRecord(ctx, legacy))

	acc := resolver.Resolve(ctx, access.Principal{SubjectID: "uid-sup", Email: "supervisor@easternmills.com"})
	assert.ElementsMatch(t, []string{"create", "gallery"}, acc.AccessibleTabs())
	assert.True(t, acc.CanEdit("gallery"))
	assert.True(t, acc.CanAccessDepartment(access.DepartmentSampling))
	assert.False(t, acc.CanAccessDepartment(access.DepartmentQuality))

	// An unknown principal is denied and a deny-by-default record appears.
	acc = resolver.Resolve(ctx, access.Principal{SubjectID: "uid-new", Email: "newhire@easternmills.com"})
	assert.Empty(t, acc.AccessibleTabs())
	assert.False(t, acc.User().IsActive)

	provisioned, err := store.Users.FetchUserRecord(ctx, "uid-new")
	require.NoError(t, err)
	require.NotNil(t, provisioned)
	assert.True(t, provisioned.IsStructured())
	assert.False(t, provisioned.IsActive)
	assert.Empty(t, provisioned.Tabs)
}

func TestBusinessStoresPostgres(t *testing.T) {
	store, db := setupPostgres(t)
	ctx := context.Background()

	sample := &storage.Sample{
		ID:         "smp-1",
		Name:       "EM-9921",
		Buyer:      "RH",
		Department: access.DepartmentSampling,
		Status:     "in_development",
	}
	require.NoError(t, store.Samples.CreateSample(ctx, sample))

	fetched, err := store.Samples.GetSample(ctx, "smp-1")
	require.NoError(t, err)
	assert.Equal(t, "EM-9921", fetched.Name)

	recorder := audit.NewRecorder(db)
	require.NoError(t, recorder.Record(ctx, &audit.Event{
		SubjectID: "uid-sup",
		Action:    audit.ActionSignIn,
	}))
	events, err := recorder.List(ctx, "uid-sup", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSignIn, events[0].Action)
}
