package tickets

import (
	"context"
	"time"

	"github.com/mikey/llm-email-responder/internal/core"
	"go.uber.org/zap"
)

// startCleanupTask runs store.Cleanup every freq until stopCh is closed
func startCleanupTask(store core.TicketStore, logger *zap.Logger, freq time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := store.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up tickets", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
