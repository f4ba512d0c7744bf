package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sstent/buzzsample/internal/buzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()
	database, err := NewDatabase(filepath.Join(t.TempDir(), "buzz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestLedgerLifecycle(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.RecordCreated(KindGroup, "g1", "Temporary Group", "run-1"))
	require.NoError(t, database.RecordCreated(KindActivity, "a1", "hello", "run-1"))

	residue, err := database.GetResidue()
	require.NoError(t, err)
	require.Len(t, residue, 2)
	assert.Equal(t, KindGroup, residue[0].Kind)
	assert.Equal(t, "run-1", residue[0].RunID)
	assert.False(t, residue[0].CreatedAt.IsZero())

	require.NoError(t, database.MarkDeleted(KindActivity, "a1"))

	residue, err = database.GetResidue()
	require.NoError(t, err)
	require.Len(t, residue, 1)
	assert.Equal(t, "g1", residue[0].ResourceID)

	deleted, err := database.GetDeleted()
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.True(t, deleted[0].Deleted)
	assert.False(t, deleted[0].DeletedAt.IsZero())

	all, err := database.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecordCreatedTwiceResetsDeleted(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.RecordCreated(KindGroup, "g1", "first", "run-1"))
	require.NoError(t, database.MarkDeleted(KindGroup, "g1"))
	require.NoError(t, database.RecordCreated(KindGroup, "g1", "second", "run-2"))

	residue, err := database.GetResidue()
	require.NoError(t, err)
	require.Len(t, residue, 1)
	assert.Equal(t, "second", residue[0].Title)
	assert.Equal(t, "run-2", residue[0].RunID)
}

func TestPagination(t *testing.T) {
	database := newTestDB(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, database.RecordCreated(KindActivity, id, id, "run"))
	}

	page1, err := database.GetAllPaginated(1, 2)
	require.NoError(t, err)
	page3, err := database.GetAllPaginated(3, 2)
	require.NoError(t, err)
	page4, err := database.GetAllPaginated(4, 2)
	require.NoError(t, err)

	assert.Len(t, page1, 2)
	assert.Equal(t, "a", page1[0].ResourceID)
	require.Len(t, page3, 1)
	assert.Equal(t, "e", page3[0].ResourceID)
	assert.Empty(t, page4)
}

func TestTokens(t *testing.T) {
	database := newTestDB(t)

	_, err := database.LoadToken("id", "scope")
	assert.ErrorIs(t, err, ErrNoToken)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, database.SaveToken("id", "scope", &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}))

	// A refresh that omits the refresh token keeps the stored one.
	require.NoError(t, database.SaveToken("id", "scope", &oauth2.Token{
		AccessToken: "access-2",
		TokenType:   "Bearer",
		Expiry:      expiry,
	}))

	tok, err := database.LoadToken("id", "scope")
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
	assert.True(t, expiry.Equal(tok.Expiry))

	_, err = database.LoadToken("id", "other-scope")
	assert.ErrorIs(t, err, ErrNoToken)

	assert.Error(t, database.SaveToken("id", "scope", &oauth2.Token{}))
}

type fakeRemote struct {
	groups     []buzz.Group
	activities []buzz.Activity
}

func (f *fakeRemote) ListGroups(ctx context.Context, userID string) ([]buzz.Group, error) {
	return f.groups, nil
}

func (f *fakeRemote) ListActivities(ctx context.Context, userID, scope string) ([]buzz.Activity, error) {
	return f.activities, nil
}

func TestReconcile(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.RecordCreated(KindGroup, "g-live", "", "run"))
	require.NoError(t, database.RecordCreated(KindGroup, "g-gone", "", "run"))
	require.NoError(t, database.RecordCreated(KindActivity, "a-gone", "", "run"))

	remote := &fakeRemote{groups: []buzz.Group{{ID: "g-live"}}}
	marked, err := database.Reconcile(context.Background(), remote)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	residue, err := database.GetResidue()
	require.NoError(t, err)
	require.Len(t, residue, 1)
	assert.Equal(t, "g-live", residue[0].ResourceID)
}

func TestReconcileNoResidueSkipsRemote(t *testing.T) {
	database := newTestDB(t)
	marked, err := database.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestMarkDeletedUnknownResource(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.RecordCreated(KindGroup, "g1", "", "run"))

	err := database.MarkDeleted(KindGroup, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ledger entry")

	residue, err := database.GetResidue()
	require.NoError(t, err)
	require.Len(t, residue, 1)
	assert.False(t, residue[0].Deleted)
}

func TestNewDatabaseOnDirectory(t *testing.T) {
	_, err := NewDatabase(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "failed to create schema"))
}
