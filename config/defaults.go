package config

// DefaultConfig returns a Config with no families enabled, ready for a
// caller to populate via YAML or the environment-variable fallback.
func DefaultConfig() *Config {
	return &Config{
		LLM:       DefaultLLMConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultLLMConfig returns an LLMConfig with no families in use.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Families:            map[string][]KeyRecord{},
		MaxValidatorRetries: 3,
	}
}

// DefaultLogConfig returns the default zap logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}

// DefaultTelemetryConfig returns telemetry disabled by default.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:     false,
		ServiceName: "llmpool",
	}
}
