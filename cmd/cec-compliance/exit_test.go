package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, exitCode(errTestsFailed))
	assert.Equal(t, ExitCommandError, exitCode(WrapExitError(ExitCommandError, "bad", errors.New("x"))))
	assert.Equal(t, ExitFailure, exitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitFailure, "run failed", nil))))
	assert.Equal(t, ExitCommandError, exitCode(errors.New("unknown flag: --colour")))
}

func TestExitErrorMessage(t *testing.T) {
	err := WrapExitError(ExitFailure, "run failed", errors.New("no ack"))
	assert.Equal(t, "run failed: no ack", err.Error())
	assert.Equal(t, "compliance tests failed", errTestsFailed.Error())
	assert.ErrorIs(t, err, err.Err)
}
