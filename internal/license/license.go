package license

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/host"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
	"go.uber.org/zap"
)

const shortIDLen = 12

// IdentityProvider returns a stable identifier of this machine.
type IdentityProvider interface {
	MachineID() (string, error)
}

// HostIdentity reads the host id reported by the operating system.
type HostIdentity struct{}

func (HostIdentity) MachineID() (string, error) {
	id, err := host.HostID()
	if err != nil {
		return "", fmt.Errorf("read host id: %w", err)
	}
	return id, nil
}

// Service checks and records the activation of this installation.
type Service struct {
	store    store.Store
	identity IdentityProvider
	seed     string
	now      func() time.Time
}

func NewService(s store.Store, identity IdentityProvider, seed string) *Service {
	return &Service{store: s, identity: identity, seed: seed, now: time.Now}
}

// ShortID is the first 12 characters of the machine id, upper-cased.
func (s *Service) ShortID() (string, error) {
	id, err := s.identity.MachineID()
	if err != nil {
		return "", err
	}
	id = strings.ToUpper(strings.TrimSpace(id))
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return id, nil
}

// ExpectedToken derives the activation token for this machine.
func (s *Service) ExpectedToken() (string, error) {
	short, err := s.ShortID()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(s.seed + short)), nil
}

// Activate stores the activation when token matches this machine.
func (s *Service) Activate(ctx context.Context, token string) error {
	expected, err := s.ExpectedToken()
	if err != nil {
		return err
	}
	if strings.TrimSpace(token) != expected {
		return domain.ErrInvalidActivation
	}
	short, _ := s.ShortID()
	act := domain.Activation{MachineID: short, ActivatedAt: s.now()}
	if err := s.store.Set(ctx, domain.KeyActivation, act); err != nil {
		return err
	}
	zap.L().Info("installation activated", zap.String("namespace", "license"), zap.String("machine_id", short))
	return nil
}

// Activated reports whether this machine holds a stored activation.
func (s *Service) Activated(ctx context.Context) (bool, error) {
	var act domain.Activation
	found, err := s.store.Get(ctx, domain.KeyActivation, &act)
	if err != nil || !found {
		return false, err
	}
	short, err := s.ShortID()
	if err != nil {
		return false, err
	}
	return act.MachineID == short, nil
}
