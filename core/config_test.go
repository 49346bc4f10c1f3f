package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadConfig_defaults(t *testing.T) {
	t.Setenv("ENV", "")
	dir := t.TempDir()

	conf, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "DEV", conf.Env)
	assert.True(t, conf.Debug)
	assert.False(t, conf.TestMode)
	assert.Equal(t, BackendFile, conf.Backend)
	assert.Equal(t, filepath.Join(dir, "records.json"), conf.Path(conf.File.Path))
	assert.Equal(t, EngineSQLite, conf.Database.Engine)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
}

func TestLoadConfig_sources(t *testing.T) {
	t.Setenv("ENV", "test")
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "records.yaml"), "backend: bolt\nbolt:\n  path: /var/lib/rekodi/records.bolt\ndatabase:\n  engine: Postgres\n  port: \"5433\"\n")
	writeFile(t, filepath.Join(dir, "config", ".env.test"), "RECORDS_DATABASE_NAME=school_test\n")
	t.Cleanup(func() { _ = os.Unsetenv("RECORDS_DATABASE_NAME") })
	t.Setenv("RECORDS_DATABASE_PORT", "6543")

	conf, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.False(t, conf.Debug)
	assert.Equal(t, BackendBolt, conf.Backend)
	assert.Equal(t, "/var/lib/rekodi/records.bolt", conf.Path(conf.Bolt.Path))
	assert.Equal(t, EnginePostgres, conf.Database.Engine)
	assert.Equal(t, "school_test", conf.Database.Name)
	assert.Equal(t, "localhost:6543", conf.Database.Address())
}

func TestLoadConfig_errors(t *testing.T) {
	t.Setenv("ENV", "")

	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr func(error) bool
	}{
		{name: "unknown backend", env: map[string]string{"RECORDS_BACKEND": "ftp"}, wantErr: IsValidation},
		{name: "unknown engine", yaml: "database:\n  engine: oracle\n", wantErr: IsValidation},
		{name: "malformed yaml", yaml: "backend: [file\n", wantErr: IsParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.yaml != "" {
				writeFile(t, filepath.Join(dir, "records.yaml"), tt.yaml)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(dir)
			assert.True(t, tt.wantErr(err), "LoadConfig() error = %v", err)
		})
	}
}
