package repositories

import (
	"errors"

	"prolance_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// translateAcceptError maps a unique violation on the partial
// accepted-status indexes to the conflict error the services expect.
// The NOT EXISTS guard inside the accept UPDATE only sees committed
// siblings; when two accepts race on different rows, the loser
// surfaces here as a duplicated-key error instead.
func translateAcceptError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrBidConflict
	}
	return err
}
