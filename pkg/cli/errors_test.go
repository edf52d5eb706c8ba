package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"mercator-hq/lendrules/pkg/config"
	"mercator-hq/lendrules/pkg/rule/conflict"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("store.dsn", "required for postgres")
	assert.Equal(t, "config error in store.dsn: required for postgres", err.Error())
}

func TestCommandError(t *testing.T) {
	inner := errors.New("underlying error")
	err := NewCommandError("import", inner)

	assert.Equal(t, "command import failed: underlying error", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestExitCode(t *testing.T) {
	el := ruleerrors.NewErrorList()
	el.Addf(ruleerrors.ReasonUnknownField, "rule.and[0]", "unknown field %q", "salary")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("x", "y"), ExitConfig},
		{"config validation", config.ValidationError{}, ExitConfig},
		{"invalid rule", NewCommandError("validate", el), ExitInvalid},
		{"duplicate", &conflict.DuplicateRuleError{Report: &conflict.Report{Kind: conflict.KindDuplicate}}, ExitConflict},
		{"overlap", fmt.Errorf("submit: %w", &conflict.ConflictError{Report: &conflict.Report{Kind: conflict.KindOverlap}}), ExitConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
