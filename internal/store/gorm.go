package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sunflowerpos/sunflower/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type kvRecord struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName Specify table name
func (kvRecord) TableName() string {
	return "kv_store"
}

// Gorm keeps every document as one row of the kv_store table.
type Gorm struct {
	db *gorm.DB
}

var _ Store = (*Gorm)(nil)

// OpenPostgres connects to PostgreSQL and migrates the kv_store table.
func OpenPostgres(cfg config.DBConfig) (*Gorm, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(level)})
	if err != nil {
		return nil, wrap("open", "", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, wrap("open", "", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	zap.L().Info("postgres store opened", zap.String("namespace", "store"),
		zap.String("host", cfg.Host), zap.String("database", cfg.Name))
	return NewGorm(db)
}

// NewGorm wraps an existing connection.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&kvRecord{}); err != nil {
		return nil, wrap("migrate", "", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	return getOne(ctx, g, key, out)
}

func (g *Gorm) Set(ctx context.Context, key string, value interface{}) error {
	return g.Update(ctx, func(tx Tx) error {
		return tx.Set(key, value)
	})
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	return g.Update(ctx, func(tx Tx) error {
		return tx.Delete(key)
	})
}

func (g *Gorm) View(ctx context.Context, fn func(tx Tx) error) error {
	return g.run(ctx, "view", false, fn)
}

func (g *Gorm) Update(ctx context.Context, fn func(tx Tx) error) error {
	return g.run(ctx, "commit", true, fn)
}

func (g *Gorm) run(ctx context.Context, op string, writable bool, fn func(tx Tx) error) error {
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	var fnErr error
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&gormTx{db: tx, writable: writable})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return wrap(op, "", err)
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return wrap("close", "", err)
	}
	return wrap("close", "", sqlDB.Close())
}

type gormTx struct {
	db       *gorm.DB
	writable bool
}

func (t *gormTx) Get(key string, out interface{}) (bool, error) {
	q := t.db
	if t.writable {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rec kvRecord
	err := q.Where("name = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrap("get", key, err)
	}
	if err := json.UnmarshalFromString(rec.Value, out); err != nil {
		return false, wrap("decode", key, err)
	}
	return true, nil
}

func (t *gormTx) Set(key string, value interface{}) error {
	if !t.writable {
		return wrap("put", key, errors.New("read-only transaction"))
	}
	data, err := json.MarshalToString(value)
	if err != nil {
		return wrap("encode", key, err)
	}
	rec := kvRecord{Name: key, Value: data, UpdatedAt: time.Now()}
	err = t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	return wrap("put", key, err)
}

func (t *gormTx) Delete(key string) error {
	if !t.writable {
		return wrap("delete", key, errors.New("read-only transaction"))
	}
	return wrap("delete", key, t.db.Where("name = ?", key).Delete(&kvRecord{}).Error)
}
