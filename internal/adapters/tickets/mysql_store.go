package tickets

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the TicketStore interface
type MySQLStore struct {
	*sqlStore
}

// NewMySQLStore creates a new MySQL ticket store
func NewMySQLStore(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email_id VARCHAR(255) NOT NULL,
			category VARCHAR(64) NOT NULL,
			kind VARCHAR(64) NOT NULL,
			priority VARCHAR(32) NOT NULL,
			context TEXT,
			created_at BIGINT NOT NULL,
			INDEX idx_tickets_email_id (email_id),
			INDEX idx_tickets_created_at (created_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLStore{&sqlStore{
		db:          db,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}}
	store.start()

	return store, nil
}
