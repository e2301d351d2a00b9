package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	devenv "foreclosure-backend/dev/env"
	"foreclosure-backend/lib/listingstore/db"
	"foreclosure-backend/lib/telemetry"

	_ "modernc.org/sqlite"
)

type MirrorParams struct {
	Name string
	// if unspecified, it will use `:memory:`
	DbPath string
}

// SetupMirror sets up telemetry for the test and opens a sqlite database
// holding the listing schema. The returned cleanup closes both.
func SetupMirror(t testing.TB, params MirrorParams) (*sql.DB, func()) {
	telemetryCleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	dbpath := ":memory:"
	if params.DbPath != "" && params.DbPath != ":memory:" {
		var err error
		dbpath, err = devenv.ResolvePath(params.DbPath)
		if err != nil {
			t.Fatal(err)
		}
	}
	sqlite, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is its own database
	sqlite.SetMaxOpenConns(1)

	_, err = sqlite.Exec(db.Schema)
	if err != nil {
		t.Fatal(err)
	}

	return sqlite, func() {
		sqlite.Close()
		telemetryCleanup()
	}
}
