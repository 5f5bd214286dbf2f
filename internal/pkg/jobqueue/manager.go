package jobqueue

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Manager owns the global job queue.
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// InitializeManager builds the global manager. Must run before GetManager.
func InitializeManager(workers int, deps Deps) *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{queue: NewQueue(workers, deps)}
	})
	return globalManager
}

// GetManager returns the global job queue manager (singleton). It panics when
// InitializeManager has not run; queue consumers must not outrace startup.
func GetManager() *Manager {
	if globalManager == nil {
		panic("jobqueue: InitializeManager must be called first")
	}
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue")
	m.queue.Start()
	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	log.Info("[JobQueue Manager] Stopping job queue...")
	m.queue.Stop()
	m.running = false
	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
