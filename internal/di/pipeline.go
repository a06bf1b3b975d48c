package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-responder/internal/config"
	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/factory"
	"github.com/mikey/llm-email-responder/internal/ports"
	"github.com/mikey/llm-email-responder/internal/utils"
)

// providePipeline registers everything between the configuration and the
// email pipeline. Config and logger must already be provided.
func providePipeline(container *dig.Container) error {
	providers := []interface{}{
		// Factories
		factory.NewTextProcessorFactory,
		factory.NewLLMFactory,
		factory.NewTicketFactory,

		// Text processor
		func(f *factory.TextProcessorFactory) *utils.TextProcessor {
			return f.CreateTextProcessor()
		},

		// LLM client
		func(f *factory.LLMFactory) (core.LLMClient, error) {
			return f.CreateLLMClient()
		},

		// Ticket store, nil when handlers only log
		func(f *factory.TicketFactory) (core.TicketStore, error) {
			return f.CreateTicketStore()
		},

		// Taxonomy
		func(cfg *config.Config) core.Taxonomy {
			return core.NewTaxonomy(cfg.GetResponder().Signature)
		},

		// Handler registry
		func(taxonomy core.Taxonomy, store core.TicketStore, logger *zap.Logger) (*core.HandlerRegistry, error) {
			return core.NewHandlerRegistry(taxonomy, logger, core.DefaultHandlers(store, logger)...)
		},

		// Gates and pipeline
		core.NewClassificationGate,
		core.NewResponseGate,
		core.NewEmailPipeline,
		func(p *core.EmailPipeline) ports.EmailProcessor {
			return p
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}
