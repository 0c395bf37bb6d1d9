package service

import "errors"

// ─── Allocation Errors ──────────────────────────────────────

var (
	// ErrTripNotFound is returned when the trip id is unknown.
	ErrTripNotFound = errors.New("trip not found")

	// ErrRequestNotFound is returned when the seat request id is unknown.
	ErrRequestNotFound = errors.New("seat request not found")

	// ErrPassengerNotFound is returned when the passenger id is unknown.
	ErrPassengerNotFound = errors.New("passenger not found")

	// ErrLocationNotFound is returned when the pickup location cannot be resolved.
	ErrLocationNotFound = errors.New("pickup location not found")

	// ErrDuplicateRequest is returned when the passenger already holds a
	// pending, accepted or waitlisted request for the trip.
	ErrDuplicateRequest = errors.New("passenger already has an active request for this trip")

	// ErrSeatUnavailable is returned when an accept is attempted with zero
	// derived free seats. The request is left unchanged.
	ErrSeatUnavailable = errors.New("trip has no available seats")

	// ErrInvalidTransition is returned when the request's current status
	// does not permit the attempted transition.
	ErrInvalidTransition = errors.New("request status does not permit this transition")

	// ErrReasonRequired is returned when a rejection arrives without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrNotRequestOwner is returned when a passenger tries to cancel a
	// request they do not own.
	ErrNotRequestOwner = errors.New("request belongs to another passenger")
)
