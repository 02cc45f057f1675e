package authstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, ok, err := s.Get(ctx, KeyAccess)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyAccess, "tok-1"))
	require.NoError(t, s.Set(ctx, KeyAccess, "tok-2"))
	v, ok, err := s.Get(ctx, KeyAccess)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-2", v)

	require.NoError(t, s.Remove(ctx, KeyAccess, KeyRefresh))
	_, ok, _ = s.Get(ctx, KeyAccess)
	assert.False(t, ok)
}

func TestStore_OnChange(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := openMemory(t)
	var got []Change
	unsubscribe := s.OnChange(func(c Change) { got = append(got, c) })

	// Act
	require.NoError(t, s.SetTokens(ctx, "a", "r"))
	require.NoError(t, s.ClearTokens(ctx))
	require.NoError(t, s.Remove(ctx, KeyAccess))
	unsubscribe()
	require.NoError(t, s.Set(ctx, KeyAccess, "ignored"))

	// Assert
	assert.Equal(t, []Change{
		{Key: KeyAccess, Value: "a", Present: true},
		{Key: KeyRefresh, Value: "r", Present: true},
		{Key: KeyAccess},
		{Key: KeyRefresh},
	}, got)
}

func TestStore_HasAccount(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	assert.False(t, s.HasAccount())
	require.NoError(t, s.SetTokens(ctx, "a", ""))
	assert.True(t, s.HasAccount())
	assert.Equal(t, "a", s.Access(ctx))
}

func TestStore_Blacklist(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	assert.Nil(t, s.Blacklist())
	require.NoError(t, s.SetBlacklist(ctx, []string{" Alice ", "BOB", ""}))

	assert.Equal(t, []string{"alice", "bob"}, s.Blacklist())
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "auth.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetTokens(ctx, "a", "r"))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok, err := reopened.Get(ctx, KeyRefresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r", v)
}
