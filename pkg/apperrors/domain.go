package apperrors

import (
	"fmt"
	"net/http"
)

// Factories and predefined variables for domain errors. Sentinels are
// matched with errors.Is via AppError.Is (code + domain).

// InvalidTransition is returned when the requested status is not
// reachable from the entity's current status. Caller bug, 409.
func InvalidTransition(entity, from, to string) *AppError {
	return New(
		CodeInvalidTransition,
		"lifecycle",
		fmt.Sprintf("%s cannot move from %q to %q", entity, from, to),
		http.StatusConflict,
	).WithDetails(map[string]string{
		"entity": entity,
		"from":   from,
		"to":     to,
	})
}

// ErrInvalidTransition is the bare sentinel used with errors.Is.
var ErrInvalidTransition = New(
	CodeInvalidTransition,
	"lifecycle",
	"Requested status is not reachable from the current status",
	http.StatusConflict,
)

// ErrAmbiguousAward: awarding requires exactly one accepted bid.
// Zero or multiple accepted bids is a caller bug and never retried.
var ErrAmbiguousAward = New(
	CodeAmbiguousAward,
	"bidding",
	"Award requires exactly one accepted bid",
	http.StatusConflict,
)

// ErrBidConflict: the exclusivity invariant was violated at commit
// time, e.g. a second accept on a project that already has an
// accepted bid.
var ErrBidConflict = New(
	CodeConflict,
	"bidding",
	"Another bid has already been accepted for this project",
	http.StatusConflict,
)

// ErrDuplicateBid: a non-withdrawn bid already exists for this
// (project, bidder) pair.
var ErrDuplicateBid = New(
	CodeDuplicateBid,
	"bidding",
	"An active bid already exists for this project",
	http.StatusBadRequest,
)

// ErrOwnProjectBid: the project's client cannot bid on it.
var ErrOwnProjectBid = New(
	CodeInvalidOperation,
	"bidding",
	"Cannot bid on your own project",
	http.StatusBadRequest,
)

// ErrConcurrentModification: the optimistic version check failed. The
// caller may retry the whole command once.
var ErrConcurrentModification = New(
	CodeConcurrentModification,
	"storage",
	"Entity was modified concurrently, retry the command",
	http.StatusConflict,
)

var ErrProjectNotFound = New(CodeNotFound, "project", "Project not found", http.StatusNotFound)
var ErrMilestoneNotFound = New(CodeNotFound, "project", "Milestone not found", http.StatusNotFound)
var ErrBidNotFound = New(CodeNotFound, "bidding", "Bid not found", http.StatusNotFound)
var ErrBiddingNotFound = New(CodeNotFound, "bidding", "Bidding not found", http.StatusNotFound)
var ErrNotificationNotFound = New(CodeNotFound, "notification", "Notification not found", http.StatusNotFound)
var ErrUserNotFound = New(CodeNotFound, "user", "User not found", http.StatusNotFound)

// ErrWithdrawNotPending: a bid may only be withdrawn while pending.
var ErrWithdrawNotPending = New(
	CodeInvalidOperation,
	"bidding",
	"Only a pending bid can be withdrawn",
	http.StatusBadRequest,
)

// ErrUndoNotWithdrawn: undo is only valid on a withdrawn bid.
var ErrUndoNotWithdrawn = New(
	CodeInvalidOperation,
	"bidding",
	"Only a withdrawn bid can be restored",
	http.StatusBadRequest,
)

// ErrMilestoneNotCompleted: payment can only be requested once the
// milestone's delivery status reached completed.
var ErrMilestoneNotCompleted = New(
	CodeInvalidOperation,
	"payment",
	"Milestone must be completed before requesting payment",
	http.StatusBadRequest,
)

// ErrBudgetExceeded: milestone amounts may not exceed the project
// budget. Enforced at creation and update, not retroactively.
var ErrBudgetExceeded = New(
	CodeLimitExceeded,
	"project",
	"Milestone amounts exceed the project budget",
	http.StatusBadRequest,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrValidationFailed = New(
	CodeValidationFailed,
	"validation",
	"Validation failed",
	http.StatusBadRequest,
)

// ErrNotFoundWrap converts a repository miss (gorm.ErrRecordNotFound
// and friends) into a 404 AppError.
func ErrNotFoundWrap(err error, resource string) *AppError {
	return Wrap(err, CodeNotFound, resource, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}
