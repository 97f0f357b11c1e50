package store

import (
	"context"
	"fmt"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sunflowerpos/sunflower/config"
	"github.com/sunflowerpos/sunflower/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Tx is a read or read-write view of the store inside a transaction.
type Tx interface {
	// Get decodes the value stored under key into out. It reports false and
	// leaves out untouched when the key does not exist.
	Get(key string, out interface{}) (bool, error)
	Set(key string, value interface{}) error
	Delete(key string) error
}

// Store is a durable key/value store of JSON documents.
type Store interface {
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error
	// Update runs fn in a read-write transaction. All writes made by fn are
	// committed together, or none are when fn returns an error.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Error is a storage level failure. It matches domain.ErrPersistence.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == domain.ErrPersistence }

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Op: op, Key: key, Err: err})
}

// Open selects the store implementation configured in cfg.
func Open(cfg config.DBConfig, workdir string) (Store, error) {
	switch cfg.Type {
	case "", "bolt":
		file := cfg.Path
		if file == "" {
			file = "sunflower.db"
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(workdir, "data", file)
		}
		return OpenBolt(file)
	case "postgres":
		return OpenPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return wrap(op, "", err)
	}
	return nil
}

func getOne(ctx context.Context, s Store, key string, out interface{}) (found bool, err error) {
	err = s.View(ctx, func(tx Tx) error {
		found, err = tx.Get(key, out)
		return err
	})
	return found, err
}
