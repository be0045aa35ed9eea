// Package auth implements user management and per-database ACLs, grounded
// on tinydb_user_manager.c and tinydb_acl.h. Passwords are hashed with
// SHA-256 before ever being stored or compared, matching the source's use
// of its own SHA256 implementation — Go's crypto/sha256 replaces the
// source's hand-rolled transform, there being no third-party hashing
// library anywhere in the example pack worth reaching for over the
// standard library's own constant-surface implementation.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"sync"
)

// Level is a bitmask of granted operations, resolving spec Open Question 1
// in favor of an OR-able set over the source's mutually exclusive
// DB_ACCESS_LEVEL enum.
type Level uint8

const (
	Read   Level = 1 << 0
	Write  Level = 1 << 1
	Delete Level = 1 << 2
)

// Has reports whether l grants every bit set in want.
func (l Level) Has(want Level) bool { return l&want == want }

// Access grants a Level on one database, mirroring DB_Access.
type Access struct {
	Database int32
	ACL      Level
}

// User is an authenticated principal with per-database grants, mirroring
// DB_User. Password holds the SHA-256 digest, never the plaintext.
type User struct {
	ID       int32
	Name     string
	Password [32]byte
	Access   []Access
}

var (
	// ErrUserExists is returned by Manager.Create for a duplicate name.
	ErrUserExists = errors.New("auth: user already exists")
	// ErrUserNotFound is returned when a named user doesn't exist.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrBadCredentials is returned by Authenticate on a name/password
	// mismatch.
	ErrBadCredentials = errors.New("auth: invalid username or password")
	// ErrDefaultUserProtected guards the default user from deletion,
	// mirroring Delete_User's explicit check.
	ErrDefaultUserProtected = errors.New("auth: cannot delete the default user")
)

func hashPassword(password string) [32]byte {
	return sha256.Sum256([]byte(password))
}

// Manager owns the user table, mirroring UserManager. The zero value is
// not ready for use; call NewManager.
type Manager struct {
	mu    sync.RWMutex
	users []*User
}

// NewManager creates a Manager seeded with a "default" user, password
// "default", granted {Read,Write,Delete} on database 0, matching spec.md
// §6's "Default identity" on first start with no snapshot present.
func NewManager() *Manager {
	m := &Manager{}
	m.users = append(m.users, &User{
		ID:       0,
		Name:     "default",
		Password: hashPassword("default"),
		Access:   []Access{{Database: 0, ACL: Read | Write | Delete}},
	})
	return m
}

func (m *Manager) findLocked(name string) *User {
	for _, u := range m.users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Create adds a new user with Read access to database 0, mirroring
// Create_User.
func (m *Manager) Create(username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findLocked(username) != nil {
		return ErrUserExists
	}

	m.users = append(m.users, &User{
		ID:       int32(len(m.users)),
		Name:     username,
		Password: hashPassword(password),
		Access:   []Access{{Database: 0, ACL: Read}},
	})
	return nil
}

// Authenticate verifies username/password and returns the matched User on
// success, mirroring Authenticate_User. Comparison uses constant-time
// equality on the digest.
func (m *Manager) Authenticate(username, password string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u := m.findLocked(username)
	if u == nil {
		return nil, ErrBadCredentials
	}
	hashed := hashPassword(password)
	if subtle.ConstantTimeCompare(hashed[:], u.Password[:]) != 1 {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// Delete removes username, mirroring Delete_User. The "default" user can
// never be deleted. Returns the user that should become Active if the
// deleted user was the caller's current session, same fallback Delete_User
// applies (ctx->Active.user = &users[0]).
func (m *Manager) Delete(username string) (fallback *User, err error) {
	if username == "default" {
		return nil, ErrDefaultUserProtected
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, u := range m.users {
		if u.Name == username {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrUserNotFound
	}

	m.users = append(m.users[:idx], m.users[idx+1:]...)
	return m.users[0], nil
}

// Grant sets database's ACL level for username, adding a new Access entry
// if none exists yet for that database. Supplements the source, which
// only ever wrote the user's single bootstrap grant and left per-database
// grant management to a future extension.
func (m *Manager) Grant(username string, database int32, level Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.findLocked(username)
	if u == nil {
		return ErrUserNotFound
	}
	for i := range u.Access {
		if u.Access[i].Database == database {
			u.Access[i].ACL = level
			return nil
		}
	}
	u.Access = append(u.Access, Access{Database: database, ACL: level})
	return nil
}

// Allowed reports whether username holds every bit of want on database.
func (m *Manager) Allowed(username string, database int32, want Level) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u := m.findLocked(username)
	if u == nil {
		return false
	}
	for _, a := range u.Access {
		if a.Database == database {
			return a.ACL.Has(want)
		}
	}
	return false
}

// Get returns the named user, or nil.
func (m *Manager) Get(username string) *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(username)
}

// Count returns the number of registered users.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// All returns a snapshot of every user, used by the snapshot codec's
// exporter.
func (m *Manager) All() []*User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, len(m.users))
	copy(out, m.users)
	return out
}

// UserRecord is the snapshot codec's decoded, pre-validated view of one
// user row, kept separate from User so importing never has to reach past
// Manager's own invariants (unique names, index-0 default user).
type UserRecord struct {
	ID       int32
	Name     string
	Password [32]byte
	Access   []Access
}

// RestoreManager rebuilds a Manager from decoded snapshot records,
// mirroring Import_Snapshot's UserManager reconstruction. The caller is
// responsible for records[0] being the "default" user; RestoreManager
// does not re-validate that invariant since it only ever runs against
// data this package itself exported.
func RestoreManager(records []UserRecord) *Manager {
	m := &Manager{}
	for _, r := range records {
		m.users = append(m.users, &User{
			ID:       r.ID,
			Name:     r.Name,
			Password: r.Password,
			Access:   r.Access,
		})
	}
	if len(m.users) == 0 {
		return NewManager()
	}
	return m
}
