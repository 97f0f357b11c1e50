package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "1234"
)

// Gate matches credentials against the local user list and tracks the
// terminal session.
type Gate struct {
	store   store.Store
	mu      sync.Mutex
	session domain.Session
}

func NewGate(s store.Store) *Gate {
	return &Gate{store: s, session: domain.Session{State: domain.SessionLoggedOut, Since: time.Now()}}
}

func loadUsers(tx store.Tx) ([]domain.User, error) {
	users := []domain.User{}
	if _, err := tx.Get(domain.KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Users lists the accounts.
func (g *Gate) Users(ctx context.Context) (users []domain.User, err error) {
	err = g.store.View(ctx, func(tx store.Tx) error {
		users, err = loadUsers(tx)
		return err
	})
	return users, err
}

// EnsureDefaultAdmin seeds admin/1234 when there are no accounts, and
// restores an ADMIN when none is left.
func (g *Gate) EnsureDefaultAdmin(ctx context.Context) error {
	seeded := ""
	err := g.store.Update(ctx, func(tx store.Tx) error {
		users, err := loadUsers(tx)
		if err != nil {
			return err
		}
		if domain.CountAdmins(users) > 0 {
			return nil
		}
		for i := range users {
			if users[i].Matches(DefaultAdminUsername) {
				users[i].Role = domain.RoleAdmin
				seeded = "repaired"
				return tx.Set(domain.KeyUsers, users)
			}
		}
		seeded = "created"
		users = append(users, domain.User{Username: DefaultAdminUsername, Password: DefaultAdminPassword, Role: domain.RoleAdmin})
		return tx.Set(domain.KeyUsers, users)
	})
	if err != nil {
		return err
	}
	if seeded != "" {
		zap.L().Warn("default administrator account "+seeded,
			zap.String("namespace", "auth"), zap.String("username", DefaultAdminUsername))
	}
	return nil
}

// Authenticate returns the role of the matching account. Any mismatch is
// reported as ErrInvalidCredentials.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (domain.Role, error) {
	users, err := g.Users(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.Matches(username) && u.Password == password {
			return u.Role, nil
		}
	}
	return "", domain.ErrInvalidCredentials
}

// Session returns the current session.
func (g *Gate) Session() domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

func (g *Gate) transition(next domain.SessionState) error {
	if !g.session.State.CanTransition(next) {
		if g.session.State == domain.SessionAuthenticating {
			return domain.ErrLoginInProgress
		}
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, g.session.State, next)
	}
	g.session.State = next
	g.session.Since = time.Now()
	return nil
}

// Login moves the session through Authenticating. A second Login while the
// first is still authenticating fails with ErrLoginInProgress.
func (g *Gate) Login(ctx context.Context, username, password string) (domain.Session, error) {
	g.mu.Lock()
	if err := g.transition(domain.SessionAuthenticating); err != nil {
		g.mu.Unlock()
		return domain.Session{}, err
	}
	g.mu.Unlock()

	role, authErr := g.Authenticate(ctx, username, password)

	g.mu.Lock()
	defer g.mu.Unlock()
	if authErr != nil {
		_ = g.transition(domain.SessionLoggedOut)
		g.session.Username, g.session.Role = "", ""
		zap.L().Warn("login failed", zap.String("namespace", "auth"), zap.String("username", strings.TrimSpace(username)))
		return domain.Session{}, authErr
	}
	_ = g.transition(domain.SessionLoggedIn)
	g.session.Username = strings.TrimSpace(username)
	g.session.Role = role
	zap.L().Info("login", zap.String("namespace", "auth"), zap.String("username", g.session.Username), zap.String("role", string(role)))
	return g.session, nil
}

func (g *Gate) Logout() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session.State == domain.SessionLoggedOut {
		return nil
	}
	if err := g.transition(domain.SessionLoggedOut); err != nil {
		return err
	}
	g.session.Username, g.session.Role = "", ""
	return nil
}

// AddUser registers an account. Usernames are unique case-insensitively.
func (g *Gate) AddUser(ctx context.Context, u domain.User) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" || u.Password == "" {
		return fmt.Errorf("%w: user and password are required", domain.ErrInvalidInput)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, u.Role)
	}
	return g.store.Update(ctx, func(tx store.Tx) error {
		users, err := loadUsers(tx)
		if err != nil {
			return err
		}
		for _, existing := range users {
			if existing.Matches(u.Username) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateUser, u.Username)
			}
		}
		return tx.Set(domain.KeyUsers, append(users, u))
	})
}

// DeleteUser removes an account. The last ADMIN cannot be removed.
func (g *Gate) DeleteUser(ctx context.Context, username string) error {
	return g.store.Update(ctx, func(tx store.Tx) error {
		users, err := loadUsers(tx)
		if err != nil {
			return err
		}
		idx := -1
		for i := range users {
			if users[i].Matches(username) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
		}
		if users[idx].Role == domain.RoleAdmin && domain.CountAdmins(users) <= 1 {
			return domain.ErrLastAdmin
		}
		users = append(users[:idx], users[idx+1:]...)
		return tx.Set(domain.KeyUsers, users)
	})
}
