package factory

import (
	"github.com/mikey/llm-email-responder/internal/adapters/ingest"
	"github.com/mikey/llm-email-responder/internal/adapters/mailer"
	"github.com/mikey/llm-email-responder/internal/config"
	"github.com/mikey/llm-email-responder/internal/ports"
	"go.uber.org/zap"
)

// IngestFactory creates the SMTP ingest server and its reply sender
type IngestFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	processor ports.EmailProcessor
}

// NewIngestFactory creates a new ingest factory
func NewIngestFactory(cfg *config.Config, logger *zap.Logger, processor ports.EmailProcessor) *IngestFactory {
	return &IngestFactory{
		cfg:       cfg,
		logger:    logger,
		processor: processor,
	}
}

// CreateEmailIngress creates the SMTP ingest server based on the configuration
func (f *IngestFactory) CreateEmailIngress() (ports.EmailIngress, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	var replies ports.ReplySender
	if serverCfg.SendReplies {
		replies = mailer.NewSMTPRelay(serverCfg.RelayAddress, serverCfg.RelayPort, serverCfg.ReplyFrom, f.logger)
		f.logger.Info("Replies will be sent through relay",
			zap.String("relay_address", serverCfg.RelayAddress),
			zap.Int("relay_port", serverCfg.RelayPort))
	} else {
		f.logger.Warn("Reply sending disabled, drafted replies are only logged")
	}

	return ingest.NewSMTPServer(
		f.processor,
		replies,
		f.logger,
		serverCfg.ListenAddress,
		serverCfg.Domain,
		serverCfg.ProcessTimeout,
		serverCfg.MaxMessageBytes,
	), nil
}
