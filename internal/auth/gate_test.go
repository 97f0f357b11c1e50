package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
)

func setupGate(t *testing.T) (*Gate, store.Store) {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	g := NewGate(s)
	require.NoError(t, g.EnsureDefaultAdmin(context.Background()))
	return g, s
}

func TestDefaultAdminSeededOnce(t *testing.T) {
	g, _ := setupGate(t)
	ctx := context.Background()
	require.NoError(t, g.EnsureDefaultAdmin(ctx))

	users, err := g.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.User{Username: "admin", Password: "1234", Role: domain.RoleAdmin}, users[0])
}

func TestAuthenticate(t *testing.T) {
	g, _ := setupGate(t)
	ctx := context.Background()

	role, err := g.Authenticate(ctx, "  ADMIN ", "1234")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)

	_, err = g.Authenticate(ctx, "admin", "12345")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = g.Authenticate(ctx, "nobody", "1234")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = g.Authenticate(ctx, "admin", " 1234")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginSessionStates(t *testing.T) {
	g, _ := setupGate(t)
	ctx := context.Background()
	assert.Equal(t, domain.SessionLoggedOut, g.Session().State)

	_, err := g.Login(ctx, "admin", "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, domain.SessionLoggedOut, g.Session().State)

	sess, err := g.Login(ctx, "admin", "1234")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionLoggedIn, sess.State)
	assert.Equal(t, domain.RoleAdmin, sess.Role)

	require.NoError(t, g.Logout())
	assert.Equal(t, domain.SessionLoggedOut, g.Session().State)
	assert.Empty(t, g.Session().Username)
}

func TestLoginRejectsDoubleSubmit(t *testing.T) {
	g, _ := setupGate(t)
	g.mu.Lock()
	g.session.State = domain.SessionAuthenticating
	g.mu.Unlock()

	_, err := g.Login(context.Background(), "admin", "1234")
	assert.ErrorIs(t, err, domain.ErrLoginInProgress)
}

func TestConcurrentLoginsEndLoggedIn(t *testing.T) {
	g, _ := setupGate(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Login(context.Background(), "admin", "1234")
		}()
	}
	wg.Wait()
	assert.Equal(t, domain.SessionLoggedIn, g.Session().State)
}

func TestUserManagement(t *testing.T) {
	g, _ := setupGate(t)
	ctx := context.Background()

	require.NoError(t, g.AddUser(ctx, domain.User{Username: "caja1", Password: "x", Role: domain.RoleUser}))
	assert.ErrorIs(t, g.AddUser(ctx, domain.User{Username: "CAJA1", Password: "y", Role: domain.RoleUser}), domain.ErrDuplicateUser)
	assert.ErrorIs(t, g.AddUser(ctx, domain.User{Username: "caja2", Password: "", Role: domain.RoleUser}), domain.ErrInvalidInput)
	assert.ErrorIs(t, g.AddUser(ctx, domain.User{Username: "caja2", Password: "z", Role: "OWNER"}), domain.ErrInvalidInput)

	assert.ErrorIs(t, g.DeleteUser(ctx, "admin"), domain.ErrLastAdmin)
	require.NoError(t, g.DeleteUser(ctx, "caja1"))
	assert.ErrorIs(t, g.DeleteUser(ctx, "caja1"), domain.ErrNotFound)

	require.NoError(t, g.AddUser(ctx, domain.User{Username: "dueño", Password: "z", Role: domain.RoleAdmin}))
	require.NoError(t, g.DeleteUser(ctx, "admin"))

	users, err := g.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "dueño", users[0].Username)
}

func TestEnsureDefaultAdminRepairsMissingAdmin(t *testing.T) {
	g, s := setupGate(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, domain.KeyUsers, []domain.User{{Username: "Admin", Password: "pw", Role: domain.RoleUser}}))

	require.NoError(t, g.EnsureDefaultAdmin(ctx))
	users, err := g.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.RoleAdmin, users[0].Role)
	assert.Equal(t, "pw", users[0].Password)
}
