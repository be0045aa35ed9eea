package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewManagerSeedsDefaultUser(t *testing.T) {
	m := NewManager()
	require.Equal(t, 1, m.Count())
	u := m.Get("default")
	require.NotNil(t, u)
	require.True(t, m.Allowed("default", 0, Read|Write|Delete))

	_, err := m.Authenticate("default", "default")
	require.NoError(t, err)
}

func TestCreateAndAuthenticate(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Create("alice", "hunter2"))

	u, err := m.Authenticate("alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Name)

	_, err = m.Authenticate("alice", "wrong")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestCreateDuplicateFails(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Create("alice", "pw"))
	require.ErrorIs(t, m.Create("alice", "pw"), ErrUserExists)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	m := NewManager()
	_, err := m.Authenticate("ghost", "pw")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestDeleteDefaultUserProtected(t *testing.T) {
	m := NewManager()
	_, err := m.Delete("default")
	require.ErrorIs(t, err, ErrDefaultUserProtected)
}

func TestDeleteUnknownUser(t *testing.T) {
	m := NewManager()
	_, err := m.Delete("ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteRemovesUser(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Create("alice", "pw"))
	fallback, err := m.Delete("alice")
	require.NoError(t, err)
	require.Equal(t, "default", fallback.Name)
	require.Nil(t, m.Get("alice"))
}

func TestGrantAddsAndUpdatesAccess(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Create("alice", "pw"))
	require.NoError(t, m.Grant("alice", 1, Read|Write))
	require.True(t, m.Allowed("alice", 1, Write))

	require.NoError(t, m.Grant("alice", 1, Delete))
	require.True(t, m.Allowed("alice", 1, Delete))
	require.False(t, m.Allowed("alice", 1, Write))
}

func TestLevelHas(t *testing.T) {
	l := Read | Write
	require.True(t, l.Has(Read))
	require.True(t, l.Has(Write))
	require.False(t, l.Has(Delete))
	require.True(t, l.Has(Read|Write))
}
