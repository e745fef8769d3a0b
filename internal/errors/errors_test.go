package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceUnavailable(t *testing.T) {
	err := SequenceUnavailable(context.DeadlineExceeded, "tenant_1", "INV-")

	assert.True(t, IsSequenceUnavailable(err))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.False(t, IsDuplicateNumber(err))
	assert.NotEmpty(t, Hint(err))
}

func TestDuplicateNumber(t *testing.T) {
	err := fmt.Errorf("create: %w", DuplicateNumber(stderrors.New("unique violation"), "INV-007"))

	assert.True(t, IsDuplicateNumber(err))
	assert.Contains(t, err.Error(), "INV-007")
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	var err error = NewValidationError("items", "quantity must be a finite number")

	assert.True(t, IsInvalidInput(err))
	assert.True(t, IsInvalidInput(Wrap(err, "create invoice")))
	assert.False(t, IsNotFound(err))

	var ve *ValidationError
	assert.True(t, As(Wrap(err, "create invoice"), &ve))
	assert.Equal(t, "items", ve.Field)
}
