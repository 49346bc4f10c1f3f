// Package storage opens the records backend selected by configuration.
package storage

import (
	"github.com/pkg/errors"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
	"github.com/trezcool/rekodi/storage/boltstore"
	"github.com/trezcool/rekodi/storage/database"
	"github.com/trezcool/rekodi/storage/database/dummy"
	"github.com/trezcool/rekodi/storage/database/sqlx"
	"github.com/trezcool/rekodi/storage/filestore"
)

// Open returns the repository for backend, migrating relational stores first.
// A corrupt store fails here with a *core.ParseError or *core.PersistenceError.
func Open(backend string, conf *core.Config, log core.Logger) (records.Repository, error) {
	switch backend {
	case core.BackendFile:
		path := conf.Path(conf.File.Path)
		log.Debug("opening file store", "path", path)
		store, err := filestore.Open(path)
		if err != nil {
			return nil, err
		}
		return store, nil

	case core.BackendDatabase:
		log.Debug("opening database", "engine", conf.Database.Engine)
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, core.NewPersistenceError("preparing database", err)
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, core.NewPersistenceError("opening database", err)
		}
		database.SetLogger(log)
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, core.NewPersistenceError("opening database", err)
		}
		return sqlxrepos.NewRecordsRepository(db), nil

	case core.BackendBolt:
		path := conf.Path(conf.Bolt.Path)
		log.Debug("opening bolt store", "path", path)
		store, err := boltstore.Open(path)
		if err != nil {
			return nil, err
		}
		return store, nil

	case core.BackendMemory:
		log.Warn("using the in-memory backend: records are lost on exit")
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		return dummydb.NewRecordsRepository(db), nil

	default:
		return nil, core.NewValidationError(
			errors.Errorf("unknown backend %q", backend),
			core.FieldError{Field: "backend", Error: "unknown backend"},
		)
	}
}
