package metrics

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

const (
	SaleTotal      = "pos_sale_total"
	SaleCount      = "pos_sale_count"
	LowStock       = "pos_low_stock"
	ReconcileFail  = "pos_reconcile_failed"
	SystemCpuUse   = "system_cpuuse"
	SystemMemUse   = "system_memuse"
	ProcessCpuUse  = "sunflower_cpuuse"
	ProcessMemUse  = "sunflower_memuse"
	defaultRetains = 90 * 24 * time.Hour
)

var (
	mu      sync.RWMutex
	storage tstorage.Storage
)

// InitMetrics opens the time series storage under <workdir>/metrics.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(defaultRetains),
	)
	if err != nil {
		return err
	}
	mu.Lock()
	storage = s
	mu.Unlock()
	return nil
}

// SetGauge records value for name at the current time.
func SetGauge(name string, value int64) {
	AddSample(name, float64(value))
}

// AddSample records a float sample. It is a no-op before InitMetrics.
func AddSample(name string, value float64, labels ...tstorage.Label) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		Labels:    labels,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
	}})
}

// Query returns the samples of name in [from, to).
func Query(name string, from, to time.Time, labels ...tstorage.Label) ([]*tstorage.DataPoint, error) {
	mu.RLock()
	defer mu.RUnlock()
	if storage == nil {
		return nil, nil
	}
	points, err := storage.Select(name, labels, from.Unix(), to.Unix())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	return points, err
}

// Sum adds the samples of name in [from, to).
func Sum(name string, from, to time.Time) float64 {
	points, err := Query(name, from, to)
	if err != nil {
		return 0
	}
	var total float64
	for _, p := range points {
		total += p.Value
	}
	return total
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
