package listingstore

import (
	"context"
	"database/sql"
	"testing"

	"foreclosure-backend/lib/listing"
	"foreclosure-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openMemory(t testing.TB) *sql.DB {
	database, cleanup := testutil.SetupMirror(t, testutil.MirrorParams{Name: "listingstore"})
	t.Cleanup(cleanup)
	return database
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	database := openMemory(t)
	morris := NewSQLStore(database, "morris", ":memory:")
	essex := NewSQLStore(database, "essex", ":memory:")
	require.Equal(t, ":memory:#morris", morris.Location())

	idx, err := morris.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, idx)

	expected := sampleIndex()
	require.NoError(t, morris.Save(ctx, expected))
	require.NoError(t, morris.Save(ctx, expected))
	require.NoError(t, essex.Save(ctx, listing.IndexOf([]listing.Record{{Address: "1 Elm St"}})))

	idx, err = morris.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(expected, idx); diff != "" {
		t.Fatal(diff)
	}

	var count int
	err = database.QueryRow("select count(*) from listing where store = 'morris'").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, len(expected), count)

	idx, err = essex.Load(ctx)
	require.NoError(t, err)
	require.Len(t, idx, 1)
}

func TestMigrateTwice(t *testing.T) {
	database := openMemory(t)
	require.NoError(t, Migrate(context.Background(), database))
}
