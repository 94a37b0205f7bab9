package statemachine

import (
	"time"

	"prolance_backend/internal/models"
	"prolance_backend/pkg/apperrors"
)

// Payment pipeline, independent of the milestone's delivery status:
//
//	not_requested -> payment_requested -> processing -> {paid | failed | cancelled}
//
// failed and cancelled are re-enterable: a later RequestPayment
// restarts the pipeline at payment_requested. paid is terminal and
// idempotent, supporting at-least-once client retries.

// RequestPayment moves the milestone into payment_requested. Calling
// it on an already paid milestone is a no-op returning changed=false.
func RequestPayment(m *models.Milestone) (changed bool, err error) {
	switch m.PaymentStatus {
	case models.PaymentStatusPaid:
		return false, nil
	case models.PaymentStatusNotRequested,
		models.PaymentStatusFailed,
		models.PaymentStatusCancelled:
		m.PaymentStatus = models.PaymentStatusRequested
		return true, nil
	default:
		return false, apperrors.InvalidTransition("milestone payment",
			string(m.PaymentStatus), string(models.PaymentStatusRequested))
	}
}

// MarkPaymentProcessing moves payment_requested -> processing.
func MarkPaymentProcessing(m *models.Milestone) error {
	if m.PaymentStatus != models.PaymentStatusRequested {
		return apperrors.InvalidTransition("milestone payment",
			string(m.PaymentStatus), string(models.PaymentStatusProcessing))
	}
	m.PaymentStatus = models.PaymentStatusProcessing
	return nil
}

// MarkPaymentPaid finishes the pipeline and flips IsPaid, the field
// consumed by progress and payout calculations.
func MarkPaymentPaid(m *models.Milestone) error {
	if m.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}
	if m.PaymentStatus != models.PaymentStatusProcessing {
		return apperrors.InvalidTransition("milestone payment",
			string(m.PaymentStatus), string(models.PaymentStatusPaid))
	}
	now := time.Now()
	m.PaymentStatus = models.PaymentStatusPaid
	m.IsPaid = true
	m.PaidAt = &now
	return nil
}

// MarkPaymentFailed moves processing -> failed. Re-enterable via
// RequestPayment.
func MarkPaymentFailed(m *models.Milestone) error {
	if m.PaymentStatus != models.PaymentStatusProcessing {
		return apperrors.InvalidTransition("milestone payment",
			string(m.PaymentStatus), string(models.PaymentStatusFailed))
	}
	m.PaymentStatus = models.PaymentStatusFailed
	return nil
}

// CancelPayment cancels an in-flight request. Legal from
// payment_requested or processing.
func CancelPayment(m *models.Milestone) error {
	switch m.PaymentStatus {
	case models.PaymentStatusRequested, models.PaymentStatusProcessing:
		m.PaymentStatus = models.PaymentStatusCancelled
		return nil
	default:
		return apperrors.InvalidTransition("milestone payment",
			string(m.PaymentStatus), string(models.PaymentStatusCancelled))
	}
}
