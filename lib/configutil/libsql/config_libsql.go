package configlibsql

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	devenv "foreclosure-backend/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct points at either a local sqlite file or a remote libsql database.
// File wins when both are set.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) Enabled() bool {
	return config.File != "" || config.Url != ""
}

// Location is a printable description of where the database lives, the auth
// token is never included.
func (config Struct) Location() string {
	if config.File != "" {
		return config.File
	}
	return config.Url
}

func (config Struct) OpenDB() (*sql.DB, error) {
	switch {
	case config.File != "":
		return openFile(config.File)
	case config.Url != "":
		return openRemote(config.Url, config.AuthToken)
	default:
		return nil, fmt.Errorf("neither a file nor a url was specified")
	}
}

func openFile(file string) (*sql.DB, error) {
	dbpath := file
	if file != ":memory:" {
		resolved, err := devenv.ResolvePath(file)
		if err != nil {
			return nil, err
		}
		dbpath = resolved

		err = os.MkdirAll(filepath.Dir(dbpath), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func openRemote(url, authToken string) (*sql.DB, error) {
	dsn := url
	if authToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}
	return sql.Open("libsql", dsn)
}
