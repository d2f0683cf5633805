package schedule

import "errors"

var (
	// ErrNotFound is returned when a keyed lookup has no row.
	ErrNotFound = errors.New("schedule: not found")

	// ErrSlotTaken is returned when another appointment lies inside the conflict window.
	ErrSlotTaken = errors.New("schedule: slot already booked")

	// ErrInvalidAppointment is returned when required booking fields are missing.
	ErrInvalidAppointment = errors.New("schedule: customer phone, service and professional are required")
)
