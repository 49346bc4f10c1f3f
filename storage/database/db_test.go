package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rekodi/core"
)

func tableNames(t *testing.T, path string) []string {
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var names []string
	err = db.Select(&names, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != 'goose_db_version' ORDER BY name`)
	require.NoError(t, err)
	return names
}

func TestRunMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "school.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantTables []string
	}{
		{name: "up", args: []string{"up"}, wantTables: []string{"assignments", "courses", "instructors", "registrations", "students"}},
		{name: "status", args: []string{"status"}, wantTables: []string{"assignments", "courses", "instructors", "registrations", "students"}},
		{name: "down", args: []string{"down"}, wantTables: []string{"courses", "instructors", "students"}},
		{name: "down-to", args: []string{"down-to", "1"}, wantTables: []string{"instructors", "students"}},
		{name: "up-to", args: []string{"up-to", "2"}, wantTables: []string{"courses", "instructors", "students"}},
		{name: "up-by-one", args: []string{"up-by-one"}, wantTables: []string{"assignments", "courses", "instructors", "registrations", "students"}},
		{name: "redo", args: []string{"redo"}, wantTables: []string{"assignments", "courses", "instructors", "registrations", "students"}},
		{name: "reset", args: []string{"reset"}, wantTables: nil},
		{name: "create", args: []string{"create", "course", "sql"}, wantErr: true},
		{name: "fix", args: []string{"fix"}, wantErr: true},
		{name: "unknown command", args: []string{"lol"}, wantErr: true},
		{name: "up again", args: []string{"up"}, wantTables: []string{"assignments", "courses", "instructors", "registrations", "students"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunMigration(db, tt.args[0], tt.args[1:]...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTables, tableNames(t, path))
		})
	}
}

func TestOpen(t *testing.T) {
	conf := &core.Config{WorkDir: t.TempDir()}
	conf.Database.Engine = core.EngineSQLite
	conf.Database.Path = "school.db"

	require.NoError(t, CreateIfNotExist(conf))
	db, err := Open(conf)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, Migrate(db))
	assert.FileExists(t, filepath.Join(conf.WorkDir, "school.db"))

	conf.Database.Engine = "oracle"
	_, err = Open(conf)
	assert.Error(t, err)
}
