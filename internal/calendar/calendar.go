package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrSlotUnavailable is returned when a booking targets a slot that does not
// exist, is closed, or is already taken.
var ErrSlotUnavailable = errors.New("slot is not available")

// DefaultDuration is the standard interview length.
const DefaultDuration = 45 * time.Minute

// Slot is a bookable interview opening.
type Slot struct {
	ID          int64
	RecruiterID int64
	Recruiter   string
	Start       time.Time
	End         time.Time
	Available   bool
}

// ListSlotsParams narrows a slot listing.
type ListSlotsParams struct {
	From          time.Time
	To            time.Time
	RecruiterID   int64
	AvailableOnly bool
}

// AppointmentRequest carries everything needed to book a slot.
type AppointmentRequest struct {
	SlotID         int64
	CandidateName  string
	CandidateEmail string
	CandidatePhone string
	InterviewType  string
	Notes          string
	ConversationID string
}

// Appointment is a confirmed booking.
type Appointment struct {
	ID            int64
	SlotID        int64
	Recruiter     string
	CandidateName string
	Start         time.Time
	End           time.Time
	Status        string
	CreatedAt     time.Time
}

// Store provides slot listing and appointment booking. Booking is atomic per
// slot: two requests for the same slot cannot both succeed.
type Store interface {
	ListSlots(ctx context.Context, params ListSlotsParams) ([]Slot, error)
	CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error)
}
