package runtime

import (
	"fmt"

	"pgmirror/shared/application/ports"
	"pgmirror/shared/infrastructure/config"
)

// Create returns the runtime selected by ADAPTER_RUNTIME
func Create(cfg *config.Config, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	switch cfg.Adapters.Runtime {
	case "lambda":
		return NewLambdaRuntime(&cfg.Lambda, handler, obs)
	case "http":
		return NewHTTPRuntime(&cfg.HTTP, &cfg.Runtime, handler, obs)
	case "rabbitmq":
		return NewRabbitMQRuntime(&cfg.Queue.RabbitMQ, handler, obs)
	default:
		return nil, fmt.Errorf("unsupported runtime adapter: %s", cfg.Adapters.Runtime)
	}
}
