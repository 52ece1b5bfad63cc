package kvstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/eventease/backend/pkg/kvstore"
)

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &storeSuite{newStore: func() kvstore.Store {
		db, err := kvstore.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db
	}})
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	db, err := kvstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "eventease_attendance_registrations", []byte(`[]`)))
	require.NoError(t, db.Close())

	db, err = kvstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	v, found, err := db.Get(ctx, "eventease_attendance_registrations")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `[]`, string(v))
}
