package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"go.uber.org/zap"
)

// Job is a named task run by cron or on demand.
type Job struct {
	Name string
	Spec string
	run  func(ctx context.Context) error

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
	lastRun time.Time
	lastErr string
}

// JobStatus is the public view of a Job.
type JobStatus struct {
	Name      string     `json:"name"`
	Spec      string     `json:"spec"`
	Running   bool       `json:"running"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type jobRegistry struct {
	order []string
	jobs  map[string]*Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: map[string]*Job{}}
}

func (r *jobRegistry) add(name, spec string, run func(ctx context.Context) error) *Job {
	j := &Job{Name: name, Spec: spec, run: run}
	r.order = append(r.order, name)
	r.jobs[name] = j
	return j
}

// execute runs the job unless a previous run is still in progress.
func (j *Job) execute(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		zap.L().Debug("job still running, skipped", zap.String("namespace", "jobs"), zap.String("job", j.Name))
		return nil
	}
	j.running = true
	j.mu.Unlock()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("job panic: %v", p)
			}
		}()
		return j.run(ctx)
	}()

	j.mu.Lock()
	j.running = false
	j.lastRun = start
	j.lastErr = ""
	if err != nil {
		j.lastErr = err.Error()
	}
	j.mu.Unlock()

	if err != nil {
		zap.L().Error("job failed", zap.String("namespace", "jobs"), zap.String("job", j.Name), zap.Error(err))
	} else {
		zap.L().Debug("job done", zap.String("namespace", "jobs"), zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
	}
	return err
}

// Jobs reports every registered job in registration order.
func (a *Application) Jobs() []JobStatus {
	if a.jobs == nil {
		return nil
	}
	out := make([]JobStatus, 0, len(a.jobs.order))
	for _, name := range a.jobs.order {
		j := a.jobs.jobs[name]
		j.mu.Lock()
		st := JobStatus{Name: j.Name, Spec: j.Spec, Running: j.running, LastError: j.lastErr}
		if !j.lastRun.IsZero() {
			last := j.lastRun
			st.LastRun = &last
		}
		entryID := j.entryID
		j.mu.Unlock()
		if a.sched != nil && entryID != 0 {
			if next := a.sched.Entry(entryID).Next; !next.IsZero() {
				st.NextRun = &next
			}
		}
		out = append(out, st)
	}
	return out
}

// RunJobNow triggers a job execution immediately by name
func (a *Application) RunJobNow(ctx context.Context, name string) error {
	if a.jobs == nil {
		return fmt.Errorf("%w: job %s", domain.ErrNotFound, name)
	}
	j, ok := a.jobs.jobs[name]
	if !ok {
		return fmt.Errorf("%w: job %s", domain.ErrNotFound, name)
	}
	return j.execute(ctx)
}
