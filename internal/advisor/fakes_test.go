package advisor

import (
	"context"
	"fmt"
	"time"

	"recruit-agent/internal/calendar"
	"recruit-agent/internal/retrieval"
)

type stubGenerator struct {
	response string
	err      error

	calls       int
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type fakeStore struct {
	slots   []calendar.Slot
	listErr error
	bookErr error

	booked []calendar.AppointmentRequest
}

func (f *fakeStore) ListSlots(_ context.Context, params calendar.ListSlotsParams) ([]calendar.Slot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []calendar.Slot
	for _, slot := range f.slots {
		if params.AvailableOnly && !slot.Available {
			continue
		}
		if !params.From.IsZero() && slot.Start.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && !slot.Start.Before(params.To) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

func (f *fakeStore) CreateAppointment(_ context.Context, req calendar.AppointmentRequest) (*calendar.Appointment, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}

	for _, slot := range f.slots {
		if slot.ID == req.SlotID {
			f.booked = append(f.booked, req)
			return &calendar.Appointment{
				ID:            int64(len(f.booked)),
				SlotID:        slot.ID,
				Recruiter:     slot.Recruiter,
				CandidateName: req.CandidateName,
				Start:         slot.Start,
				End:           slot.End,
				Status:        "scheduled",
			}, nil
		}
	}

	return nil, fmt.Errorf("slot %d: %w", req.SlotID, calendar.ErrSlotUnavailable)
}

type fakeSearcher struct {
	passages []retrieval.Passage
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, topK int) ([]retrieval.Passage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.passages) > topK {
		return f.passages[:topK], nil
	}
	return f.passages, nil
}

// Wednesday morning, matching the reference used across parser tests.
var testRef = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

func slotAt(id int64, day, hour, minute int, recruiter string) calendar.Slot {
	start := time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
	return calendar.Slot{
		ID:        id,
		Recruiter: recruiter,
		Start:     start,
		End:       start.Add(calendar.DefaultDuration),
		Available: true,
	}
}
