package booking

import "fmt"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusAccepted   BookingStatus = "accepted"
	StatusScheduled  BookingStatus = "scheduled"
	StatusEnRoute    BookingStatus = "en_route"
	StatusInProgress BookingStatus = "in_progress"
	StatusComplete   BookingStatus = "complete"
	StatusCancelled  BookingStatus = "cancelled"
)

// forwardOrder is the total order of forward progression. Cancelled sits outside it.
var forwardOrder = []BookingStatus{
	StatusPending,
	StatusAccepted,
	StatusScheduled,
	StatusEnRoute,
	StatusInProgress,
	StatusComplete,
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	return s == StatusCancelled || s.Position() >= 0
}

// Position returns the index of s in the forward order, or -1 for cancelled and unknown values.
func (s BookingStatus) Position() int {
	for i, st := range forwardOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// CanAdvanceTo reports whether target lies strictly after s in the forward order.
// Skipping intermediate stages is allowed.
func (s BookingStatus) CanAdvanceTo(target BookingStatus) bool {
	if s.IsTerminal() {
		return false
	}
	from, to := s.Position(), target.Position()
	return from >= 0 && to > from
}

// CanBeCancelled returns true if the booking can be cancelled from this status.
func (s BookingStatus) CanBeCancelled() bool {
	return s == StatusPending
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// AllStatuses returns every status, forward order first.
func AllStatuses() []BookingStatus {
	out := make([]BookingStatus, 0, len(forwardOrder)+1)
	out = append(out, forwardOrder...)
	return append(out, StatusCancelled)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
