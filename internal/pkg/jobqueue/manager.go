package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/edupay/ipn-gateway/app/repository"
	"github.com/edupay/ipn-gateway/internal/pkg/env"
	"github.com/edupay/ipn-gateway/internal/pkg/ipn"
	"github.com/edupay/ipn-gateway/internal/pkg/metrics/counter"
)

// DefaultDedupWindowHours bounds how long a fingerprint claim blocks
// duplicate deliveries. Overridable via IPN_DEDUP_WINDOW_HOURS.
const DefaultDedupWindowHours = 24

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	pipeline           *ipn.Pipeline
	redispatchTicker   *time.Ticker
	claimSweepTicker   *time.Ticker
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v, err := strconv.Atoi(env.GetEnv("JOB_QUEUE_WORKERS", "3")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Configure wires the pipeline and notifier into the queue. Must be called
// before Start.
func (m *Manager) Configure(pipeline *ipn.Pipeline, notifier ipn.Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipeline = pipeline
	m.queue.SetPipeline(pipeline)
	m.queue.SetNotifier(notifier)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Rescue events whose queue hand-off was lost (received, validated, queued)
	m.redispatchTicker = time.NewTicker(time.Minute)
	m.wg.Add(1)
	go m.redispatchWorker()

	// Expire fingerprint claims older than the dedup window
	m.claimSweepTicker = time.NewTicker(15 * time.Minute)
	m.wg.Add(1)
	go m.claimSweepWorker()

	// Flush Redis counters to DB every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.redispatchTicker != nil {
		m.redispatchTicker.Stop()
	}
	if m.claimSweepTicker != nil {
		m.claimSweepTicker.Stop()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// redispatchWorker re-enqueues events stuck in a non-terminal status with no
// job left to move them: received events whose processing enqueue failed,
// validated events that never reached Dispatch, queued events whose reconcile
// job was lost.
func (m *Manager) redispatchWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Redispatch worker stopping")
			return
		case <-m.redispatchTicker.C:
			if m.pipeline == nil {
				continue
			}
			if err := m.pipeline.RedispatchStale(50); err != nil {
				log.Errorf("[JobQueue Manager] Redispatch error: %v", err)
			}
		}
	}
}

// claimSweepWorker expires fingerprint claims past the dedup window so a
// genuinely re-sent payment outside the window is treated as new.
func (m *Manager) claimSweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Claim sweep worker stopping")
			return
		case <-m.claimSweepTicker.C:
			cutoff := time.Now().Add(-DedupWindow())
			deleted, err := repository.GetGlobalRepositories().Event.DeleteClaimsBefore(cutoff)
			if err != nil {
				log.Errorf("[JobQueue Manager] Claim sweep error: %v", err)
				continue
			}
			if deleted > 0 {
				log.Infof("[JobQueue Manager] Expired %d fingerprint claims", deleted)
			}
		}
	}
}

// counterFlushWorker periodically flushes in-memory counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// DedupWindow returns the configured fingerprint retention window.
func DedupWindow() time.Duration {
	hours := DefaultDedupWindowHours
	if v, err := strconv.Atoi(env.GetEnv("IPN_DEDUP_WINDOW_HOURS", "")); err == nil && v > 0 {
		hours = v
	}
	return time.Duration(hours) * time.Hour
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
