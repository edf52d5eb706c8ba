package cli

import (
	"errors"
	"fmt"

	"mercator-hq/lendrules/pkg/config"
	"mercator-hq/lendrules/pkg/rule/conflict"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

// Exit codes returned by the lendrules command.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInvalid  = 2 // a rule document failed validation
	ExitConflict = 3 // a rule duplicates or overlaps a stored rule
	ExitConfig   = 4 // configuration could not be loaded
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	var (
		cfgErr *ConfigError
		valErr config.ValidationError
		el     *ruleerrors.ErrorList
		se     *ruleerrors.SchemaError
		dup    *conflict.DuplicateRuleError
		ce     *conflict.ConflictError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitConfig
	case errors.As(err, &dup), errors.As(err, &ce):
		return ExitConflict
	case errors.As(err, &el), errors.As(err, &se):
		return ExitInvalid
	default:
		return ExitFailure
	}
}
