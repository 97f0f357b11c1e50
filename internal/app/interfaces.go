package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sunflowerpos/sunflower/config"
	"github.com/sunflowerpos/sunflower/internal/auth"
	"github.com/sunflowerpos/sunflower/internal/backup"
	"github.com/sunflowerpos/sunflower/internal/cart"
	"github.com/sunflowerpos/sunflower/internal/catalog"
	"github.com/sunflowerpos/sunflower/internal/license"
	"github.com/sunflowerpos/sunflower/internal/reconcile"
	"github.com/sunflowerpos/sunflower/internal/report"
	"github.com/sunflowerpos/sunflower/internal/store"
)

// StoreProvider provides persistence access
type StoreProvider interface {
	Store() store.Store
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
	Jobs() []JobStatus
	// RunJobNow runs a named job synchronously
	RunJobNow(ctx context.Context, name string) error
}

// ServiceProvider exposes the domain services
type ServiceProvider interface {
	Catalog() *catalog.Service
	Cart() *cart.Engine
	Reports() *report.Service
	Gate() *auth.Gate
	Reconciler() *reconcile.Service
	Backup() *backup.Service
	License() *license.Service
}

// WorkerProvider runs CPU heavy work on the bounded pool
type WorkerProvider interface {
	Submit(ctx context.Context, fn func() error) error
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	StoreProvider
	ConfigProvider
	SchedulerProvider
	ServiceProvider
	WorkerProvider
}
