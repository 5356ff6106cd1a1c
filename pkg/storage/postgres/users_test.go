package postgres

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easternmills/millops/pkg/access"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(context.Background(), db))
	return NewStore(db)
}

func TestUserRecordStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	dept := "quality"
	record := &access.StoredUserRecord{
		UID:         "uid-1",
		Email:       "inspector@easternmills.com",
		Department:  &dept,
		Tabs:        []string{"dashboard", "compliance"},
		Permissions: []string{"view_dashboard", "view_compliance"},
		IsActive:    true,
	}
	require.NoError(t, store.Users.CreateUserRecord(ctx, record))

	got, err := store.Users.FetchUserRecord(ctx, "uid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "inspector@easternmills.com", got.Email)
	require.NotNil(t, got.Department)
	assert.Equal(t, "quality", *got.Department)
	assert.Equal(t, []string{"dashboard", "compliance"}, got.Tabs)
	assert.True(t, got.IsStructured())

	byEmail, err := store.Users.FetchUserRecordByEmail(ctx, "inspector@easternmills.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "uid-1", byEmail.UID)
}

func TestUserRecordStore_MissReturnsNil(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.Users.FetchUserRecord(ctx, "no-such-uid")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Users.FetchUserRecordByEmail(ctx, "nobody@easternmills.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRecordStore_LegacyShapeSurvivesVerbatim(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	record := &access.StoredUserRecord{
		UID:                "uid-legacy",
		Email:              "legacy@easternmills.com",
		LegacyDepartmentID: "sampling",
		LegacyRole:         "supervisor",
	}
	require.NoError(t, store.Users.CreateUserRecord(ctx, record))

	got, err := store.Users.FetchUserRecord(ctx, "uid-legacy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsStructured())
	assert.Equal(t, "sampling", got.LegacyDepartmentID)
	assert.Equal(t, "supervisor", got.LegacyRole)
}

func TestUserRecordStore_DenyByDefaultRecordStaysStructured(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// The shape the resolver provisions on a first sign-in: empty grants,
	// inactive. It must come back structured, not coerced to legacy with
	// the department's default tabs.
	dept := "quality"
	role := "viewer"
	record := &access.StoredUserRecord{
		UID:         "uid-new",
		Email:       "newhire@easternmills.com",
		Department:  &dept,
		Tabs:        []string{},
		Permissions: []string{},
		Role:        &role,
		IsActive:    false,
	}
	require.NoError(t, store.Users.CreateUserRecord(ctx, record))

	got, err := store.Users.FetchUserRecord(ctx, "uid-new")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.IsStructured())
	assert.Empty(t, got.Tabs)
	assert.Empty(t, got.Permissions)
	assert.False(t, got.IsActive)

	user := access.Normalize(got, access.FallbackRole())
	assert.Empty(t, user.Tabs)
	assert.Empty(t, user.Permissions)
	assert.False(t, user.IsActive)
}

func TestUserRecordStore_Update(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	record := &access.StoredUserRecord{UID: "uid-2", Email: "old@easternmills.com"}
	require.NoError(t, store.Users.CreateUserRecord(ctx, record))

	dept := "hr"
	record.Email = "new@easternmills.com"
	record.Department = &dept
	record.Tabs = []string{"employees"}
	record.Permissions = []string{"view_employees", "edit_employees"}
	require.NoError(t, store.Users.UpdateUserRecord(ctx, "uid-2", record))

	got, err := store.Users.FetchUserRecordByEmail(ctx, "new@easternmills.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsStructured())
	assert.Contains(t, got.Permissions, "edit_employees")

	err = store.Users.UpdateUserRecord(ctx, "missing-uid", record)
	assert.Error(t, err)
}

func TestUserRecordStore_List(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, uid := range []string{"b-uid", "a-uid"} {
		require.NoError(t, store.Users.CreateUserRecord(ctx, &access.StoredUserRecord{
			UID:   uid,
			Email: uid + "@easternmills.com",
		}))
	}

	records, err := store.Users.ListUserRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-uid", records[0].UID)
	assert.Equal(t, "b-uid", records[1].UID)
}
