package cache

import "fmt"

// A ConfigError reports a cache configuration that cannot be built.
type ConfigError struct {
	Field  string
	Value  int
	Policy string
	Reason string
}

func newConfigError(field string, value int, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

func (e *ConfigError) Error() string {
	if e.Policy != "" {
		return fmt.Sprintf("invalid cache config: %s %q: %s",
			e.Field, e.Policy, e.Reason)
	}

	return fmt.Sprintf("invalid cache config: %s=%d: %s",
		e.Field, e.Value, e.Reason)
}
