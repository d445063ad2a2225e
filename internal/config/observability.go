package config

// OtelConfig holds OpenTelemetry trace export configuration.
//
// Traces are exported over OTLP/HTTP to a local collector (for example
// an agent on localhost:4318) which handles authentication, buffering,
// and forwarding. An empty Endpoint disables export entirely; see
// internal/observability for the setup.
type OtelConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables tracing.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the reported service name (default: mentora).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}
