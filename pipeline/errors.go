package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoOutputs is the cause of a ConfigError for an empty format or width set.
var ErrNoOutputs = errors.New("no output formats / sizes configured")

// ConfigError aborts the build of one module. It is not retried.
type ConfigError struct {
	ID  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v for %s", e.Err, e.ID)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
