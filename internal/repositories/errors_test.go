package repositories

import (
	"errors"
	"fmt"
	"testing"

	"prolance_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateAcceptError_UniqueViolationIsConflict(t *testing.T) {
	err := translateAcceptError(gorm.ErrDuplicatedKey)
	assert.True(t, apperrors.Is(err, apperrors.ErrBidConflict))

	wrapped := fmt.Errorf("accept bid: %w", gorm.ErrDuplicatedKey)
	assert.True(t, apperrors.Is(translateAcceptError(wrapped), apperrors.ErrBidConflict))
}

func TestTranslateAcceptError_PassesThroughOtherErrors(t *testing.T) {
	cause := errors.New("connection reset")
	assert.Equal(t, cause, translateAcceptError(cause))
	assert.NoError(t, translateAcceptError(nil))
}
