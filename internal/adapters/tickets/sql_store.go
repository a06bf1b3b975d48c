package tickets

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/llm-email-responder/internal/core"
	"go.uber.org/zap"
)

// sqlStore holds the queries shared by the SQLite and MySQL stores.
// Timestamps are stored as unix nanoseconds so both engines compare them the same way.
type sqlStore struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// CreateTicket stores a ticket
func (s *sqlStore) CreateTicket(ctx context.Context, ticket *core.Ticket) error {
	createdAt := ticket.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (email_id, category, kind, priority, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ticket.EmailID, string(ticket.Category), string(ticket.Kind), string(ticket.Priority),
		ticket.Context, createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	return nil
}

// ListTickets returns the tickets filed for an email in filing order
func (s *sqlStore) ListTickets(ctx context.Context, emailID string) ([]*core.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email_id, category, kind, priority, context, created_at
		FROM tickets
		WHERE email_id = ?
		ORDER BY id
	`, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var out []*core.Ticket
	for rows.Next() {
		var t core.Ticket
		var category, kind, priority string
		var createdAt int64
		if err := rows.Scan(&t.EmailID, &category, &kind, &priority, &t.Context, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		t.Category = core.Category(category)
		t.Kind = core.TicketKind(kind)
		t.Priority = core.TicketPriority(priority)
		t.CreatedAt = time.Unix(0, createdAt)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tickets: %w", err)
	}

	return out, nil
}

// Cleanup removes tickets older than the retention period
func (s *sqlStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-s.retention).UnixNano()
	result, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE created_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up expired tickets: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired tickets", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close ticket database", zap.Error(err))
		}
	})
}

func (s *sqlStore) start() {
	if s.cleanupFreq > 0 {
		go startCleanupTask(s, s.logger, s.cleanupFreq, s.stopCh)
	}
}
