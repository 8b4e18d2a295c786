package booking

import "context"

// TechnicianAssigner chooses the technician stamped on a booking and its job at acceptance.
type TechnicianAssigner interface {
	AssignTechnician(ctx context.Context, b *Booking, callerID string) (string, error)
}

// AcceptingCallerAssigner assigns the technician who accepted the booking.
type AcceptingCallerAssigner struct{}

// AssignTechnician returns callerID.
func (AcceptingCallerAssigner) AssignTechnician(_ context.Context, _ *Booking, callerID string) (string, error) {
	return callerID, nil
}
