package types

type RunMode string

const (
	// ModeLocal is the mode for running the API server together with the in-memory audit transport
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server against postgres, redis and kafka
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
