package configlibsql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mirror.db")
	cfg := Struct{File: path}
	require.True(t, cfg.Enabled())
	require.Equal(t, path, cfg.Location())

	db, err := cfg.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("create table t (v integer)")
	require.NoError(t, err)
	_, err = db.Exec("insert into t values (1)")
	require.NoError(t, err)

	var v int
	require.NoError(t, db.QueryRow("select v from t").Scan(&v))
	require.Equal(t, 1, v)
}

func TestOpenUnconfigured(t *testing.T) {
	cfg := Struct{}
	require.False(t, cfg.Enabled())
	_, err := cfg.OpenDB()
	require.Error(t, err)
}

func TestLocationHidesToken(t *testing.T) {
	cfg := Struct{Url: "libsql://mirror.example.turso.io", AuthToken: "secret"}
	require.Equal(t, "libsql://mirror.example.turso.io", cfg.Location())
}
