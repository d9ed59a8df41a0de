package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/variantlens/backend/internal/domain"
)

// SchedulerState is the lifecycle state of the background scheduler.
type SchedulerState string

const (
	StateStopped SchedulerState = "stopped"
	StateRunning SchedulerState = "running"
	StatePaused  SchedulerState = "paused"
)

// taskYield is the cooperative pause between drained tasks, giving
// enqueuers a window before the next task starts.
const taskYield = 5 * time.Millisecond

// subscriberBuffer sizes per-subscriber event channels. A subscriber that
// falls this far behind loses events rather than stalling the queue.
const subscriberBuffer = 32

// SchedulerConfig holds the scheduler knobs.
type SchedulerConfig struct {
	// AnalysisInterval is the period of the full-scan timer.
	AnalysisInterval time.Duration
	// Defaults are the detection options applied to scheduled full scans.
	Defaults domain.DetectionOptions
}

// Scheduler owns the background analysis queue: a priority task queue, a
// periodic re-scan timer, and a single logical consumer so that exactly one
// task executes at a time. State, queue and counters are mutex-guarded to
// preserve that guarantee under concurrent callers.
type Scheduler struct {
	mu          sync.Mutex
	state       SchedulerState
	queue       []*domain.AnalysisTask
	processing  bool
	tickerStop  chan struct{}
	analysesRun uint64

	interval time.Duration
	defaults domain.DetectionOptions

	detector *DetectorService
	cache    *ResultCache
	source   domain.ProductSource
	logger   *zap.Logger

	subMu   sync.Mutex
	subs    map[int]chan domain.Event
	nextSub int
}

// NewScheduler creates a stopped scheduler. source supplies products for
// full scans; it may be nil when only explicit product lists are analyzed.
func NewScheduler(detector *DetectorService, cache *ResultCache, source domain.ProductSource, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	if cfg.AnalysisInterval <= 0 {
		cfg.AnalysisInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		state:    StateStopped,
		interval: cfg.AnalysisInterval,
		defaults: cfg.Defaults,
		detector: detector,
		cache:    cache,
		source:   source,
		logger:   logger,
		subs:     make(map[int]chan domain.Event),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves Stopped/Paused to Running, enqueues an immediate full scan
// and arms the periodic timer. Calling Start on a running scheduler is a
// no-op; exactly one timer is ever armed.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.armTimerLocked()
	s.mu.Unlock()

	s.publish(domain.Event{Type: domain.EventServiceStarted})
	if _, err := s.Schedule(nil, s.defaults, domain.PriorityNormal); err != nil {
		s.logger.Warn("failed to enqueue initial scan", zap.Error(err))
	}
	s.kick()
}

// Stop clears the timer and discards all queued tasks. An in-flight task is
// allowed to finish; stopped means no new task will start, not that the
// current task aborts.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.disarmTimerLocked()
	s.queue = nil
	s.mu.Unlock()

	s.publish(domain.Event{Type: domain.EventServiceStopped})
}

// Pause clears the timer only; queue contents and the in-flight task are
// untouched. Used for host visibility changes.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.state = StatePaused
	s.disarmTimerLocked()
}

// Resume re-arms the timer after a Pause.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return
	}
	s.state = StateRunning
	s.armTimerLocked()
}

// armTimerLocked starts the periodic full-scan timer. Caller holds the lock.
func (s *Scheduler) armTimerLocked() {
	if s.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	s.tickerStop = stop

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Schedule(nil, s.defaults, domain.PriorityNormal); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

func (s *Scheduler) disarmTimerLocked() {
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
}

// Schedule enqueues an analysis task. High priority inserts at the queue
// head, ahead of any earlier normal task; normal priority appends FIFO. The
// returned id matches the taskId on completion events.
func (s *Scheduler) Schedule(products []domain.Product, opts domain.DetectionOptions, priority domain.TaskPriority) (string, error) {
	task := &domain.AnalysisTask{
		ID:        uuid.NewString(),
		Products:  products,
		Options:   opts,
		Priority:  priority,
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return "", domain.ErrSchedulerStopped
	}
	if priority == domain.PriorityHigh {
		s.queue = append([]*domain.AnalysisTask{task}, s.queue...)
	} else {
		s.queue = append(s.queue, task)
	}
	s.mu.Unlock()

	s.kick()
	return task.ID, nil
}

// Force enqueues a high-priority, cache-bypassing task and waits for its
// completion or error event. There is no built-in timeout: a stuck task
// blocks the queue, and the caller bounds the wait through ctx. The event
// subscription is released before returning.
func (s *Scheduler) Force(ctx context.Context, products []domain.Product, opts domain.DetectionOptions) (*domain.AnalysisResult, error) {
	opts.BypassCache = true

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	taskID, err := s.Schedule(products, opts, domain.PriorityHigh)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case ev := <-events:
			if ev.TaskID != taskID {
				continue
			}
			switch ev.Type {
			case domain.EventAnalysisComplete, domain.EventAnalysisCached:
				return ev.Results, nil
			case domain.EventAnalysisError:
				return nil, fmt.Errorf("%w: %s", domain.ErrTaskFailed, ev.Err)
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Subscribe registers an event channel and returns it with its unsubscribe
// function. Slow subscribers drop events once their buffer fills.
// Unsubscribing closes the channel so range loops over it terminate; publish
// and unsubscribe share subMu, so a send on the closed channel cannot occur.
func (s *Scheduler) Subscribe() (<-chan domain.Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.Event, subscriberBuffer)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *Scheduler) publish(ev domain.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("dropping event for slow subscriber",
				zap.String("event", string(ev.Type)))
		}
	}
}

// kick starts the drain loop when no task is executing.
func (s *Scheduler) kick() {
	s.mu.Lock()
	if s.processing || s.state == StateStopped || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	s.processing = true
	s.mu.Unlock()

	go s.drain()
}

// drain is the single logical consumer: strictly one task executes at a
// time, with a short cooperative yield between tasks. A task failure is
// reported via an error event and never stops the queue.
func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if s.state == StateStopped || len(s.queue) == 0 {
			s.processing = false
			s.mu.Unlock()
			return
		}
		task := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.runTask(task)
		time.Sleep(taskYield)
	}
}

func (s *Scheduler) runTask(task *domain.AnalysisTask) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("analysis task panicked",
				zap.String("taskId", task.ID),
				zap.Any("panic", r))
			s.publish(domain.Event{
				Type:   domain.EventAnalysisError,
				TaskID: task.ID,
				Err:    fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	start := time.Now()
	ctx := context.Background()

	products := task.Products
	if products == nil {
		if s.source == nil {
			s.publish(domain.Event{
				Type:   domain.EventAnalysisError,
				TaskID: task.ID,
				Err:    "no product source configured for full scan",
			})
			return
		}
		fetched, err := s.source.FetchProducts(ctx)
		if err != nil {
			s.logger.Error("product fetch failed",
				zap.String("taskId", task.ID), zap.Error(err))
			s.publish(domain.Event{
				Type:   domain.EventAnalysisError,
				TaskID: task.ID,
				Err:    err.Error(),
			})
			return
		}
		products = fetched
	}

	key := s.cache.Key(products, task.Options)
	if !task.Options.BypassCache {
		if cached, ok := s.cache.Get(key); ok {
			s.publish(domain.Event{
				Type:    domain.EventAnalysisCached,
				TaskID:  task.ID,
				Results: cached,
			})
			return
		}
	}

	result := s.detector.Analyze(ctx, products, task.Options)
	s.cache.Put(key, result, task.Options.MaxCacheAge)
	s.cache.Persist(ctx)

	s.mu.Lock()
	s.analysesRun++
	s.mu.Unlock()

	s.logger.Info("analysis complete",
		zap.String("taskId", task.ID),
		zap.Int("products", len(products)),
		zap.Int("groups", len(result.Groups)),
		zap.Duration("duration", time.Since(start)))

	s.publish(domain.Event{
		Type:     domain.EventAnalysisComplete,
		TaskID:   task.ID,
		Results:  result,
		Duration: time.Since(start),
	})
}

// Statistics assembles the counters included in export snapshots.
func (s *Scheduler) Statistics() domain.ExportStatistics {
	cacheStats := s.cache.Stats()

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ExportStatistics{
		CacheHits:    cacheStats.Hits,
		CacheMisses:  cacheStats.Misses,
		CacheEntries: cacheStats.Entries,
		AnalysesRun:  s.analysesRun,
		QueueDepth:   len(s.queue),
	}
}
