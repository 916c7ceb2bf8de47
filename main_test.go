package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/partyline/internal/core/board"
)

func TestExitStatus(t *testing.T) {
	assert.Equal(t, 128, exitStatus(fmt.Errorf("open: %w", board.ErrTableNotFound)))
	assert.Equal(t, 1, exitStatus(errors.New("append record: disk full")))
}
