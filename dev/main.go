package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	devenv "foreclosure-backend/dev/env"
	configlibsql "foreclosure-backend/lib/configutil/libsql"
	"foreclosure-backend/lib/listingstore/db"
)

const mirrorPath = "<dev_state>/listings.db"

const localConfig = `{
  // created by dev/main.go, overrides config.json5 for local runs
  downloads_dir: "dev/.state/downloads",
  fetcher: {
    mode: "chrome",
    headful: false,
  },
  mirror: {
    file: "<dev_state>/listings.db",
  },
}
`

func createMirror() error {
	database, err := configlibsql.Struct{File: mirrorPath}.OpenDB()
	if err != nil {
		return err
	}
	defer database.Close()
	_, err = database.Exec(db.Schema)
	return err
}

func writeLocalConfig() error {
	_, err := os.Stat("config.local.json5")
	if err == nil {
		fmt.Println("config.local.json5 already exists, leaving it alone")
		return nil
	}
	fmt.Println("writing config.local.json5")
	return os.WriteFile("config.local.json5", []byte(localConfig), 0644)
}

func create(recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	err = os.MkdirAll("dev/.state/downloads", 0777)
	if err != nil {
		return err
	}

	err = createMirror()
	if err != nil {
		return err
	}
	err = writeLocalConfig()
	if err != nil {
		return err
	}

	resolved, err := devenv.ResolvePath(mirrorPath)
	if err != nil {
		return err
	}
	fmt.Println("mirror database:", resolved)
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
