package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/sunflowerpos/sunflower/internal/export"
	"github.com/sunflowerpos/sunflower/internal/notify"
	"github.com/sunflowerpos/sunflower/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	JobReconcile    = "reconcile"
	JobMonitor      = "monitor"
	JobBackup       = "backup"
	JobJournalPurge = "journal_purge"
	JobOrderMail    = "order_mail"

	journalRetention  = 90 * 24 * time.Hour
	inventorySnapshot = "inventario_ultimo.xlsx"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) buildJobs() {
	a.jobs = newJobRegistry()
	a.jobs.add(JobReconcile, "@every 1m", a.SchedReconcileTask)
	a.jobs.add(JobMonitor, "@every 30s", func(ctx context.Context) error {
		a.SchedSystemMonitorTask()
		a.SchedProcessMonitorTask()
		return nil
	})
	a.jobs.add(JobBackup, "@daily", a.SchedBackupTask)
	a.jobs.add(JobJournalPurge, "@daily", a.SchedJournalPurgeTask)
	a.jobs.add(JobOrderMail, "0 8 * * *", a.SchedOrderMailTask)
}

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	if loc == nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	if a.jobs == nil {
		a.buildJobs()
	}

	for _, name := range a.jobs.order {
		j := a.jobs.jobs[name]
		id, err := a.sched.AddFunc(j.Spec, func() {
			_ = j.execute(context.Background())
		})
		if err != nil {
			zap.S().Errorf("init job %s error %s", j.Name, err.Error())
			continue
		}
		j.mu.Lock()
		j.entryID = id
		j.mu.Unlock()
	}

	a.sched.Start()
}

// SchedReconcileTask retries stock journal entries that are still pending.
func (a *Application) SchedReconcileTask(ctx context.Context) error {
	_, err := a.reconciler.SyncPending(ctx)
	return err
}

func (a *Application) SchedJournalPurgeTask(ctx context.Context) error {
	n, err := a.reconciler.PurgeApplied(ctx, journalRetention)
	if n > 0 {
		zap.L().Info("stock journal purged", zap.String("namespace", "jobs"), zap.Int("removed", n))
	}
	return err
}

// SchedBackupTask writes the nightly backup and an inventory workbook side by side.
func (a *Application) SchedBackupTask(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.backup.Run(gctx)
	})
	g.Go(func() error {
		return a.writeInventorySnapshot(gctx)
	})
	return g.Wait()
}

func (a *Application) writeInventorySnapshot(ctx context.Context) error {
	products, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.Submit(ctx, func() error { return export.WriteInventoryXLSX(&buf, products) }); err != nil {
		return err
	}
	dir := a.appConfig.GetBackupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, inventorySnapshot), buf.Bytes(), 0o644)
}

// SchedOrderMailTask mails the supplier order list when any product is low.
func (a *Application) SchedOrderMailTask(ctx context.Context) error {
	if a.mailer == nil {
		return nil
	}
	low, err := a.catalog.LowStock(ctx)
	if err != nil {
		return err
	}
	if len(low) == 0 {
		return nil
	}
	now := time.Now()
	var buf bytes.Buffer
	err = a.Submit(ctx, func() error {
		return export.WriteOrderListPDF(&buf, low, now.Format("02/01/2006"))
	})
	if err != nil {
		return err
	}
	subject := "Lista de pedido " + export.DateStamp(now)
	body := fmt.Sprintf("%d productos con stock menor a %d.", len(low), a.catalog.Threshold())
	return a.mailer.Send(ctx, subject, body, notify.Attachment{Name: export.OrderListName(now), Data: buf.Bytes()})
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge(metrics.SystemCpuUse, int64(_cpuuse[0]*100)) // Store as percentage * 100
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(metrics.SystemMemUse, int64(_meminfo.Used/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.ProcessCpuUse, int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.ProcessMemUse, int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}
