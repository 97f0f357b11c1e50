package app

import (
	"context"
	"fmt"

	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
	"go.uber.org/zap"
)

// checkAdmin makes sure an administrator account exists.
func (a *Application) checkAdmin() error {
	if err := a.gate.EnsureDefaultAdmin(context.Background()); err != nil {
		zap.L().Error("failed to check default admin", zap.Error(err))
		return err
	}
	return nil
}

// InitDb wipes every collection and seeds the default admin again.
func (a *Application) InitDb(ctx context.Context) error {
	err := a.store.Update(ctx, func(tx store.Tx) error {
		for _, key := range domain.Keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	if err := a.cart.Clear(ctx); err != nil {
		return err
	}
	zap.L().Warn("store reset", zap.Strings("keys", domain.Keys))
	return a.checkAdmin()
}

// OverrideStore replaces the application's store and rewires the services (used in tests).
func (a *Application) OverrideStore(s store.Store) error {
	a.store = s
	if err := a.wire(context.Background()); err != nil {
		return err
	}
	return a.checkAdmin()
}
