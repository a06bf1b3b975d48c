package batch

import (
	"context"

	"github.com/mikey/llm-email-responder/internal/core"
	"github.com/mikey/llm-email-responder/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result for one Record. Rejected records carry no result.
type Outcome struct {
	Result   core.ProcessingResult
	Rejected bool
}

// Runner processes a batch of records through an EmailProcessor
type Runner struct {
	processor   ports.EmailProcessor
	concurrency int
	logger      *zap.Logger
}

// NewRunner creates a runner processing up to concurrency emails at once
func NewRunner(processor ports.EmailProcessor, concurrency int, logger *zap.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		processor:   processor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run returns one Outcome per record, in input order
func (r *Runner) Run(ctx context.Context, records []Record) []Outcome {
	outcomes := make([]Outcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, record := range records {
		if record.Err != nil {
			r.logger.Info("Skipping invalid email record",
				zap.Int("index", i),
				zap.Error(record.Err))
			outcomes[i] = Outcome{Rejected: true}
			continue
		}

		i, record := i, record
		g.Go(func() error {
			r.logger.Info("Processing email", zap.String("email_id", record.Email.ID))
			outcomes[i] = Outcome{Result: r.processor.Process(gctx, record.Email)}
			return nil
		})
	}

	// Workers never fail; Wait only joins them
	_ = g.Wait()
	return outcomes
}
