package booking

import (
	"fmt"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
)

// TransitionKind tells the caller which side effects a legal transition carries.
type TransitionKind int

const (
	// TransitionAdvance is a plain forward status write.
	TransitionAdvance TransitionKind = iota
	// TransitionAccept assigns a technician and creates the job.
	TransitionAccept
	// TransitionAcceptRepeat is a retried acceptance by the already-assigned technician.
	TransitionAcceptRepeat
	// TransitionComplete is a forward write that records service history afterwards.
	TransitionComplete
	// TransitionCancel is the customer's cancellation of a pending booking.
	TransitionCancel
)

// PlanTransition decides whether callerID may move b to target and which kind of
// transition that is. It never mutates b.
//
// Order of checks: repeat/raced acceptance, party membership, cancellation rules,
// role rules for forward moves, then forward order.
func (b *Booking) PlanTransition(callerID string, target BookingStatus) (TransitionKind, error) {
	if !target.IsValid() {
		return 0, domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", target))
	}
	if callerID == "" {
		return 0, domain.NewUnauthorizedError("caller identity is required")
	}

	if target == StatusAccepted && b.jobID != nil {
		if b.IsTechnician(callerID) {
			return TransitionAcceptRepeat, nil
		}
		return 0, domain.NewConflictError("booking already accepted by another technician")
	}

	acceptingPending := target == StatusAccepted && b.status == StatusPending
	if !b.IsParty(callerID) && !acceptingPending {
		return 0, domain.NewForbiddenError("caller is not a party to this booking")
	}

	if target == StatusCancelled {
		if !b.IsCustomer(callerID) {
			return 0, domain.NewForbiddenError("only the customer can cancel a booking")
		}
		if !b.status.CanBeCancelled() {
			return 0, domain.NewInvalidStateError(string(b.status), string(target))
		}
		return TransitionCancel, nil
	}

	if acceptingPending {
		if b.IsCustomer(callerID) {
			return 0, domain.NewForbiddenError("customers cannot accept their own booking")
		}
		return TransitionAccept, nil
	}

	if !b.IsTechnician(callerID) {
		return 0, domain.NewForbiddenError("only the assigned technician can advance this booking")
	}
	if !b.status.CanAdvanceTo(target) {
		return 0, domain.NewInvalidStateError(string(b.status), string(target))
	}
	if target == StatusComplete {
		return TransitionComplete, nil
	}
	return TransitionAdvance, nil
}
