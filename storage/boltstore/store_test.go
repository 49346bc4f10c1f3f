package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rekodi/core/records"
	"github.com/trezcool/rekodi/tests"
)

func TestStore(t *testing.T) {
	testutil.RunRepositoryTests(t, func(t *testing.T) records.Repository {
		store, err := Open(filepath.Join(t.TempDir(), "records.bolt"))
		require.NoError(t, err)
		return store
	})
}

func Test_linkKey(t *testing.T) {
	left, right, err := splitLinkKey(linkKey("s-1", "c_10"))
	require.NoError(t, err)
	assert.Equal(t, "s-1", left)
	assert.Equal(t, "c_10", right)

	_, _, err = splitLinkKey([]byte("no-separator"))
	assert.Error(t, err)
}

func TestStore_reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.bolt")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveAll(ctx, testutil.SampleState()))
	want := testutil.Load(t, store)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.Equal(t, want, testutil.Load(t, store))

	dst := filepath.Join(t.TempDir(), "backup.bolt")
	require.NoError(t, store.Backup(ctx, dst))
	backup, err := Open(dst)
	require.NoError(t, err)
	defer func() { _ = backup.Close() }()
	assert.Equal(t, want, testutil.Load(t, backup))
}
