package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"github.com/sunflowerpos/sunflower/config"
	"github.com/sunflowerpos/sunflower/internal/auth"
	"github.com/sunflowerpos/sunflower/internal/backup"
	"github.com/sunflowerpos/sunflower/internal/cart"
	"github.com/sunflowerpos/sunflower/internal/catalog"
	"github.com/sunflowerpos/sunflower/internal/events"
	"github.com/sunflowerpos/sunflower/internal/license"
	"github.com/sunflowerpos/sunflower/internal/notify"
	"github.com/sunflowerpos/sunflower/internal/reconcile"
	"github.com/sunflowerpos/sunflower/internal/report"
	"github.com/sunflowerpos/sunflower/internal/store"
	"github.com/sunflowerpos/sunflower/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const workerPoolSize = 4

type Application struct {
	appConfig  *config.AppConfig
	store      store.Store
	bus        events.Bus
	sched      *cron.Cron
	pool       *ants.Pool
	jobs       *jobRegistry
	catalog    *catalog.Service
	cart       *cart.Engine
	reports    *report.Service
	gate       *auth.Gate
	reconciler *reconcile.Service
	backup     *backup.Service
	license    *license.Service
	mailer     notify.Sender
}

// Ensure Application implements all interfaces
var (
	_ StoreProvider     = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ WorkerProvider    = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig { return a.appConfig }
func (a *Application) Store() store.Store { return a.store }
func (a *Application) Scheduler() *cron.Cron { return a.sched }
func (a *Application) Catalog() *catalog.Service { return a.catalog }
func (a *Application) Cart() *cart.Engine { return a.cart }
func (a *Application) Reports() *report.Service { return a.reports }
func (a *Application) Gate() *auth.Gate { return a.gate }
func (a *Application) Reconciler() *reconcile.Service { return a.reconciler }
func (a *Application) Backup() *backup.Service { return a.backup }
func (a *Application) License() *license.Service { return a.license }
func (a *Application) Bus() events.Bus { return a.bus }
func (a *Application) Mailer() notify.Sender { return a.mailer }
func (a *Application) SetMailer(sender notify.Sender) { a.mailer = sender }

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	var err error
	if cfg.Logger.FileEnable {
		filename := cfg.Logger.Filename
		if filename == "" {
			filename = filepath.Join(cfg.GetLogDir(), "sunflower.log")
		}
		lumberJackLogger := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// Init opens the store, wires the services and starts the scheduled jobs.
func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	if err := cfg.InitDirs(); err != nil {
		return err
	}
	initLogger(cfg)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	a.store, err = store.Open(cfg.Database, cfg.System.Workdir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	zap.S().Infof("Store opened, type: %s", cfg.Database.Type)

	if err := a.wire(context.Background()); err != nil {
		return err
	}
	if err := a.checkAdmin(); err != nil {
		return err
	}

	a.pool, err = ants.NewPool(workerPoolSize, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("worker panic: %v", p)
	}))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}

	a.initJob()
	return nil
}

// wire builds the domain services over an opened store.
func (a *Application) wire(ctx context.Context) error {
	cfg := a.appConfig
	threshold := cfg.Inventory.LowStockThreshold

	a.bus = events.New()
	a.catalog = catalog.NewService(a.store, threshold)
	a.reconciler = reconcile.NewService(a.store, a.bus, threshold)
	a.reports = report.NewService(a.store)
	a.gate = auth.NewGate(a.store)
	a.license = license.NewService(a.store, license.HostIdentity{}, cfg.License.Seed)

	var uploader backup.Uploader
	if cfg.Backup.Sftp.Enabled {
		sftpUploader, err := backup.NewSftpUploader(cfg.Backup.Sftp)
		if err != nil {
			return err
		}
		uploader = sftpUploader
	}
	a.backup = backup.NewService(a.store, cfg.GetBackupDir(), cfg.Backup.Keep, uploader)

	if cfg.Mail.Enabled {
		a.mailer = notify.NewMailer(cfg.Mail)
	}

	engine, err := cart.NewEngine(ctx, a.store, a.catalog, a.reconciler, cart.WithPublisher(a.bus))
	if err != nil {
		return fmt.Errorf("restore cart: %w", err)
	}
	a.cart = engine

	a.buildJobs()
	return a.subscribe()
}

// Submit runs fn on the worker pool and waits for it.
func (a *Application) Submit(ctx context.Context, fn func() error) error {
	if a.pool == nil {
		return fn()
	}
	done := make(chan error, 1)
	if err := a.pool.Submit(func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.pool != nil {
		a.pool.Release()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zap.S().Error(err)
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
