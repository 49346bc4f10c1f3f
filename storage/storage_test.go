package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/services/logger"
	"github.com/trezcool/rekodi/tests"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		backend  string
		wantFile string
	}{
		{backend: core.BackendFile, wantFile: "records.json"},
		{backend: core.BackendDatabase, wantFile: "school.db"},
		{backend: core.BackendBolt, wantFile: "records.bolt"},
		{backend: core.BackendMemory},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			conf := &core.Config{WorkDir: t.TempDir()}
			conf.File.Path = "records.json"
			conf.Bolt.Path = "records.bolt"
			conf.Database.Engine = core.EngineSQLite
			conf.Database.Path = "school.db"

			repo, err := Open(tt.backend, conf, logsvc.NewNopLogger())
			require.NoError(t, err)
			defer func() { _ = repo.Close() }()

			testutil.CreateStudent(t, repo, "1", "A", "a@b.com")
			assert.Len(t, testutil.Load(t, repo).Students, 1)
			if tt.wantFile != "" {
				assert.FileExists(t, filepath.Join(conf.WorkDir, tt.wantFile))
			}
		})
	}
}

func TestOpen_errors(t *testing.T) {
	conf := &core.Config{WorkDir: t.TempDir()}
	conf.File.Path = "records.json"

	_, err := Open("ftp", conf, logsvc.NewNopLogger())
	assert.True(t, core.IsValidation(err), "Open() error = %v, want validation error", err)

	require.NoError(t, os.WriteFile(filepath.Join(conf.WorkDir, "records.json"), []byte("{oops"), 0o600))
	_, err = Open(core.BackendFile, conf, logsvc.NewNopLogger())
	assert.True(t, core.IsParse(err), "Open() error = %v, want parse error", err)
}
