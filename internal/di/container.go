package di

import (
	"go.uber.org/dig"

	"github.com/mikey/llm-email-responder/internal/config"
	"github.com/mikey/llm-email-responder/internal/factory"
	"github.com/mikey/llm-email-responder/internal/logging"
	"github.com/mikey/llm-email-responder/internal/ports"
)

// BuildContainer creates and configures a dependency injection container
// for the SMTP daemon
func BuildContainer() (*dig.Container, error) {
	return buildContainer(config.New)
}

func buildContainer(configProvider interface{}) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(configProvider); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register ingest
	if err := container.Provide(factory.NewIngestFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IngestFactory) (ports.EmailIngress, error) {
		return f.CreateEmailIngress()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
