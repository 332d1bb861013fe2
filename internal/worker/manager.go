package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"weibosim/internal/queue"
)

const (
	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second
)

// Manager runs the relay loop that consumes StreamViews. Each instance
// reads through its own consumer group so every instance sees every event.
type Manager struct {
	consumer  queue.Consumer
	handler   *Handler
	group     string
	batchSize int64
	blockTime time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the relay manager.
type ManagerConfig struct {
	Instance     string        // Unique per process; names the consumer group
	BatchSize    int64         // Messages per read
	BlockTimeout time.Duration // Block time for XREADGROUP
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig(instance string) ManagerConfig {
	return ManagerConfig{
		Instance:     instance,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

// NewManager creates a new relay manager.
func NewManager(consumer queue.Consumer, handler *Handler, cfg ManagerConfig) *Manager {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}

	return &Manager{
		consumer:  consumer,
		handler:   handler,
		group:     GroupName(cfg.Instance),
		batchSize: cfg.BatchSize,
		blockTime: cfg.BlockTimeout,
	}
}

// GroupName is the consumer group used by instance.
func GroupName(instance string) string {
	return "views-" + instance
}

// Start creates the group and begins the relay goroutine.
// Call Stop() to shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamViews, m.group); err != nil {
		return err
	}

	log.Printf("[Manager] Starting relay for stream=%s group=%s", queue.StreamViews, m.group)

	m.wg.Add(1)
	go m.run()
	return nil
}

// Stop cancels the relay, waits for it and drops the group.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping relay...")
	m.cancel()
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.consumer.DestroyGroup(ctx, queue.StreamViews, m.group); err != nil {
		log.Printf("[Manager] DestroyGroup error: %v", err)
	}
	log.Printf("[Manager] Relay stopped")
}

func (m *Manager) run() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Manager] Relay shutting down")
			return
		default:
			m.processMessages()
		}
	}
}

// processMessages reads and handles a batch of messages.
func (m *Manager) processMessages() {
	messages, err := m.consumer.Read(m.ctx, queue.StreamViews, m.group, "relay", m.batchSize, m.blockTime)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Printf("[Manager] Error reading: %v", err)
		select {
		case <-time.After(time.Second): // Back off on error
		case <-m.ctx.Done():
		}
		return
	}

	if len(messages) == 0 {
		return // Timeout, no messages
	}

	m.handleMessages(messages)
}

// handleMessages processes a batch and acknowledges each message.
func (m *Manager) handleMessages(messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			// Still ACK to prevent infinite redelivery
			log.Printf("[Manager] Handler error msgID=%s: %v", msg.ID, err)
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamViews, m.group, msg.ID); err != nil {
			log.Printf("[Manager] ACK error msgID=%s: %v", msg.ID, err)
		}
	}
}
