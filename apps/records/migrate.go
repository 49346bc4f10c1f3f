package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/storage/database"
)

var (
	openDBFunc       = database.Open         // mockable
	runMigrationFunc = database.RunMigration // mockable
)

func (cli *commandLine) migrate(args []string) error {
	if cli.conf.Backend != core.BackendDatabase {
		return core.NewValidationError(
			errors.Errorf("the %s backend has no migrations", cli.conf.Backend),
			core.FieldError{Field: "backend", Error: "migrations only apply to the database backend"},
		)
	}
	db, err := openDBFunc(cli.conf)
	if err != nil {
		return core.NewPersistenceError("opening database", err)
	}
	defer func() { _ = db.Close() }()

	database.SetLogger(cli.log)
	return runMigrationFunc(db, args[0], args[1:]...)
}
