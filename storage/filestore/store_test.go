package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rekodi/core"
	"github.com/trezcool/rekodi/core/records"
	"github.com/trezcool/rekodi/tests"
)

func TestStore(t *testing.T) {
	testutil.RunRepositoryTests(t, func(t *testing.T) records.Repository {
		store, err := Open(filepath.Join(t.TempDir(), "records.json"))
		require.NoError(t, err)
		return store
	})
}

func TestOpen(t *testing.T) {
	write := func(t *testing.T, content string) string {
		path := filepath.Join(t.TempDir(), "records.json")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name      string
		content   *string
		wantParse bool
	}{
		{name: "missing file"},
		{name: "blank file", content: strPtr("  \n")},
		{name: "empty document", content: strPtr("{}")},
		{name: "valid document", content: strPtr(`{"students": [{"id": "1", "name": "A", "email": "a@b.com", "enrolled_course_ids": ["10"]}],
			"courses": [{"id": "10", "name": "CS101"}], "registrations": [{"student_id": "1", "course_id": "10"}]}`)},
		{name: "malformed json", content: strPtr(`{"students": [`), wantParse: true},
		{name: "wrong types", content: strPtr(`{"students": {"id": 1}}`), wantParse: true},
		{name: "trailing data", content: strPtr(`{} {}`), wantParse: true},
		{name: "dangling registration", content: strPtr(`{"registrations": [{"student_id": "1", "course_id": "10"}]}`), wantParse: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "records.json")
			if tt.content != nil {
				path = write(t, *tt.content)
			}
			store, err := Open(path)
			if tt.wantParse {
				assert.True(t, core.IsParse(err), "Open() error = %v, want parse error", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, store.Path())
		})
	}
}

func TestStore_fileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.json")
	store, err := Open(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Open() should not create the file")

	testutil.CreateStudent(t, store, "1", "A", "a@b.com")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n    \"students\": ["), "unexpected layout:\n%s", data)
	assert.Contains(t, string(data), `"enrolled_course_ids": []`)
	assert.NotContains(t, string(data), `"age"`)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Backup(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "records.json"))
	require.NoError(t, err)
	require.NoError(t, store.SaveAll(context.Background(), testutil.SampleState()))

	dst := filepath.Join(dir, "backup.json")
	require.NoError(t, store.Backup(context.Background(), dst))

	backup, err := Open(dst)
	require.NoError(t, err)
	assert.Equal(t, testutil.Load(t, store), testutil.Load(t, backup))
}

func strPtr(s string) *string { return &s }
