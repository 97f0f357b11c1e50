package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var bucketName = []byte("sunflower")

// Bolt is the default single-file store.
type Bolt struct {
	db *bbolt.DB
}

var _ Store = (*Bolt)(nil)

func OpenBolt(file string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, wrap("open", "", err)
	}
	db, err := bbolt.Open(file, 0o600, &bbolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, wrap("open", "", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, wrap("open", "", err)
	}
	zap.L().Info("bolt store opened", zap.String("namespace", "store"), zap.String("file", file))
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	return getOne(ctx, b, key, out)
}

func (b *Bolt) Set(ctx context.Context, key string, value interface{}) error {
	return b.Update(ctx, func(tx Tx) error {
		return tx.Set(key, value)
	})
}

func (b *Bolt) Delete(ctx context.Context, key string) error {
	return b.Update(ctx, func(tx Tx) error {
		return tx.Delete(key)
	})
}

func (b *Bolt) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := checkCtx(ctx, "view"); err != nil {
		return err
	}
	var fnErr error
	err := b.db.View(func(btx *bbolt.Tx) error {
		fnErr = fn(&boltTx{bucket: btx.Bucket(bucketName)})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return wrap("view", "", err)
}

func (b *Bolt) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := checkCtx(ctx, "update"); err != nil {
		return err
	}
	var fnErr error
	err := b.db.Update(func(btx *bbolt.Tx) error {
		fnErr = fn(&boltTx{bucket: btx.Bucket(bucketName)})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return wrap("commit", "", err)
}

func (b *Bolt) Close() error {
	return wrap("close", "", b.db.Close())
}

type boltTx struct {
	bucket *bbolt.Bucket
}

func (t *boltTx) Get(key string, out interface{}) (bool, error) {
	v := t.bucket.Get([]byte(key))
	if v == nil {
		return false, nil
	}
	if err := json.Unmarshal(v, out); err != nil {
		return false, wrap("decode", key, err)
	}
	return true, nil
}

func (t *boltTx) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return wrap("encode", key, err)
	}
	return wrap("put", key, t.bucket.Put([]byte(key), data))
}

func (t *boltTx) Delete(key string) error {
	return wrap("delete", key, t.bucket.Delete([]byte(key)))
}
