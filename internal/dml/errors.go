package dml

import "fmt"

// ConfigError reports an invalid configuration field. Every Validate returns
// it before any model fitting starts, so a run that has begun fitting can no
// longer fail on configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}
