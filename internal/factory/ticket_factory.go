package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/llm-email-responder/internal/adapters/tickets"
	"github.com/mikey/llm-email-responder/internal/config"
	"github.com/mikey/llm-email-responder/internal/core"
	"go.uber.org/zap"
)

// TicketFactory creates the store category handlers file tickets into
type TicketFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTicketFactory creates a new ticket factory
func NewTicketFactory(cfg *config.Config, logger *zap.Logger) *TicketFactory {
	return &TicketFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTicketStore creates a ticket store based on the configuration.
// The "none" backend returns a nil store and handlers only log.
func (f *TicketFactory) CreateTicketStore() (core.TicketStore, error) {
	handlersCfg, err := f.cfg.GetHandlers()
	if err != nil {
		return nil, err
	}

	switch handlersCfg.Backend {
	case "none", "":
		return nil, nil
	case "memory":
		return tickets.NewMemoryStore(f.logger, handlersCfg.Retention, handlersCfg.CleanupFrequency), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(handlersCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return tickets.NewSQLiteStore(handlersCfg.SQLitePath, f.logger, handlersCfg.Retention, handlersCfg.CleanupFrequency)
	case "mysql":
		return tickets.NewMySQLStore(handlersCfg.MySQLDSN, f.logger, handlersCfg.Retention, handlersCfg.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported ticket backend: %s", handlersCfg.Backend)
	}
}
