package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs one-shot delayed tasks and periodic jobs on top of cron.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu    sync.Mutex
	tasks map[cron.EntryID]*Task
}

// New создает новый планировщик
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		tasks:  make(map[cron.EntryID]*Task),
	}
}

// Start запускает планировщик
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Debug("📅 Scheduler started")
}

// Stop cancels every pending task and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	pending := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		pending = append(pending, t)
	}
	s.mu.Unlock()
	for _, t := range pending {
		t.Cancel()
	}

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Debug("📅 Scheduler stopped", zap.Int("cancelled", len(pending)))
}

// Pending returns the number of tasks that have neither run nor been cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Every registers fn on a standard 5-field cron spec.
func (s *Scheduler) Every(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("🕘 Triggered periodic job", zap.String("job", name))
		if err := fn(s.ctx); err != nil {
			s.logger.Error("❌ Periodic job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// After runs fn once after delay unless the returned task is cancelled first.
func (s *Scheduler) After(name string, delay time.Duration, fn func()) *Task {
	t := &Task{
		name:  name,
		sched: s,
		done:  make(chan struct{}),
	}
	at := time.Now().Add(delay)

	// The entry is registered under the lock so the job cannot look itself up
	// before the ID is known.
	s.mu.Lock()
	t.id = s.cron.Schedule(&oneShot{at: at, task: t}, cron.FuncJob(func() {
		if !t.state.CompareAndSwap(statePending, stateRunning) {
			return
		}
		s.forget(t)
		defer close(t.done)
		fn()
		t.state.Store(stateDone)
	}))
	s.tasks[t.id] = t
	s.mu.Unlock()

	s.logger.Debug("⏳ Task scheduled", zap.String("task", name), zap.Duration("delay", delay))
	return t
}

func (s *Scheduler) forget(t *Task) {
	s.mu.Lock()
	delete(s.tasks, t.id)
	s.mu.Unlock()
	s.cron.Remove(t.id)
}

const (
	statePending int32 = iota
	stateRunning
	stateDone
	stateCancelled
)

// Task is a handle to a delayed one-shot job.
type Task struct {
	id    cron.EntryID
	name  string
	sched *Scheduler
	state atomic.Int32
	done  chan struct{}
}

func (t *Task) Name() string { return t.name }

// Cancel prevents the task from running. It reports false if the task has
// already started, finished or been cancelled.
func (t *Task) Cancel() bool {
	if !t.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	t.sched.forget(t)
	close(t.done)
	t.sched.logger.Debug("🛑 Task cancelled", zap.String("task", t.name))
	return true
}

// Done is closed once the task has run to completion or was cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Cancelled() bool { return t.state.Load() == stateCancelled }

// oneShot fires once at a fixed instant. A past instant fires immediately.
// Next is only called from the cron goroutine.
type oneShot struct {
	at         time.Time
	task       *Task
	dispatched bool
}

func (o *oneShot) Next(time.Time) time.Time {
	if o.dispatched || o.task.state.Load() != statePending {
		return time.Time{}
	}
	o.dispatched = true
	return o.at
}
