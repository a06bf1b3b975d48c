package tickets

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/llm-email-responder/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the TicketStore interface
type MemoryStore struct {
	tickets     []*core.Ticket
	mu          sync.RWMutex
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates a new in-memory ticket store
func NewMemoryStore(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryStore {
	store := &MemoryStore{
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	if cleanupFreq > 0 {
		go startCleanupTask(store, logger, cleanupFreq, store.stopCh)
	}

	return store
}

// CreateTicket stores a copy of ticket
func (s *MemoryStore) CreateTicket(ctx context.Context, ticket *core.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *ticket
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.tickets = append(s.tickets, &stored)
	return nil
}

// ListTickets returns the tickets filed for an email in filing order
func (s *MemoryStore) ListTickets(ctx context.Context, emailID string) ([]*core.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Ticket
	for _, t := range s.tickets {
		if t.EmailID == emailID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Cleanup removes tickets older than the retention period
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.retention)
	kept := s.tickets[:0]
	expiredCount := 0
	for _, t := range s.tickets {
		if t.CreatedAt.Before(cutoff) {
			expiredCount++
			continue
		}
		kept = append(kept, t)
	}
	s.tickets = kept

	s.logger.Debug("Cleaned up expired tickets", zap.Int("expired_count", expiredCount))
	return nil
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
