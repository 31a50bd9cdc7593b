package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Working window and slot grid for a bookable day.
const (
	workDayStartHour = 9
	workDayEndHour   = 17
	slotStep         = 30 * time.Minute
)

// NoteKind selects which appointment message the Notifier generates.
type NoteKind string

const (
	NoteConfirmation NoteKind = "confirmation"
	NoteReschedule   NoteKind = "reschedule"
	NoteCancellation NoteKind = "cancellation"
	NoteReminder     NoteKind = "reminder"
)

// Notifier generates human-facing appointment messages. Implementations
// typically call a chat-completion provider; any failure is surfaced to
// the SlotBook caller.
type Notifier interface {
	AppointmentNote(ctx context.Context, kind NoteKind, appt *Appointment) (string, error)
}

// SlotBook owns the bookable calendar and appointment table for a single
// realtor. Mutations under the mutex are all-or-nothing with respect to
// the not-found and slot-availability checks; a Notifier failure surfaces
// after the booking has committed and is not rolled back.
type SlotBook struct {
	realtorID    string
	slots        map[time.Time]*TimeSlot
	appointments map[string]*Appointment
	notifier     Notifier
	now          func() time.Time
	mu           sync.Mutex
	logger       *zap.Logger
}

// NewSlotBook creates an empty calendar for a realtor.
func NewSlotBook(realtorID string, notifier Notifier, logger *zap.Logger) *SlotBook {
	return &SlotBook{
		realtorID:    realtorID,
		slots:        make(map[time.Time]*TimeSlot),
		appointments: make(map[string]*Appointment),
		notifier:     notifier,
		now:          time.Now,
		logger:       logger,
	}
}

// SetClock overrides the time source. Used by tests.
func (b *SlotBook) SetClock(now func() time.Time) { b.now = now }

// slotKey normalizes a start time to UTC so two representations of the
// same instant address the same slot. time.Time map keys otherwise
// compare wall clock and location, not the instant.
func slotKey(t time.Time) time.Time { return t.UTC() }

// AvailableSlots enumerates free slots for a day on a 30-minute grid
// between 09:00 and 17:00. Each slot spans the requested duration and is
// included only if it fits entirely within the working window. Slots are
// materialized lazily and cached by start time, so repeated calls see the
// same availability.
func (b *SlotBook) AvailableSlots(day time.Time, duration time.Duration) []TimeSlot {
	b.mu.Lock()
	defer b.mu.Unlock()

	cursor := time.Date(day.Year(), day.Month(), day.Day(), workDayStartHour, 0, 0, 0, day.Location())
	windowEnd := time.Date(day.Year(), day.Month(), day.Day(), workDayEndHour, 0, 0, 0, day.Location())

	var available []TimeSlot
	for cursor.Before(windowEnd) {
		slotEnd := cursor.Add(duration)
		if !slotEnd.After(windowEnd) {
			slot, ok := b.slots[slotKey(cursor)]
			if !ok {
				slot = &TimeSlot{Start: cursor, End: slotEnd, Available: true}
				b.slots[slotKey(cursor)] = slot
			}
			if slot.Available {
				available = append(available, *slot)
			}
		}
		cursor = cursor.Add(slotStep)
	}
	return available
}

// Book places an appointment on the slot starting at start. It fails with
// ErrSlotUnavailable if the slot is already bound. The confirmation note is
// generated after the booking has committed; a Notifier failure therefore
// leaves the slot booked and the appointment in place.
func (b *SlotBook) Book(ctx context.Context, leadID string, start, end time.Time, apptType, location string) (*Appointment, error) {
	b.mu.Lock()
	slot, ok := b.slots[slotKey(start)]
	if !ok {
		slot = &TimeSlot{Start: start, End: end, Available: true}
		b.slots[slotKey(start)] = slot
	}
	if !slot.Available {
		b.mu.Unlock()
		return nil, ErrSlotUnavailable
	}

	appt := &Appointment{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		RealtorID: b.realtorID,
		Start:     slot.Start,
		End:       slot.End,
		Type:      apptType,
		Location:  location,
		Status:    StatusScheduled,
	}
	slot.Available = false
	slot.BookingID = appt.ID
	b.appointments[appt.ID] = appt
	b.mu.Unlock()

	b.logger.Info("appointment booked",
		zap.String("id", appt.ID),
		zap.String("lead", leadID),
		zap.Time("start", slot.Start))

	note, err := b.notifier.AppointmentNote(ctx, NoteConfirmation, appt)
	if err != nil {
		return nil, fmt.Errorf("confirmation note: %w", err)
	}
	b.setNotes(appt.ID, note)
	return b.snapshot(appt.ID), nil
}

// Reschedule moves an appointment to the slot starting at newStart. The old
// slot is freed and the new slot bound; all checks happen before any
// mutation, so a failed reschedule leaves availability unchanged. A
// cancelled appointment cannot be rescheduled.
func (b *SlotBook) Reschedule(ctx context.Context, appointmentID string, newStart, newEnd time.Time) (*Appointment, error) {
	b.mu.Lock()
	appt, ok := b.appointments[appointmentID]
	if !ok {
		b.mu.Unlock()
		return nil, ErrNotFound
	}
	if appt.Status == StatusCancelled {
		b.mu.Unlock()
		return nil, ErrAlreadyCancelled
	}

	newSlot, ok := b.slots[slotKey(newStart)]
	if !ok {
		newSlot = &TimeSlot{Start: newStart, End: newEnd, Available: true}
		b.slots[slotKey(newStart)] = newSlot
	}
	if !newSlot.Available {
		b.mu.Unlock()
		return nil, ErrSlotUnavailable
	}

	if oldSlot, ok := b.slots[slotKey(appt.Start)]; ok {
		oldSlot.Available = true
		oldSlot.BookingID = ""
	}
	appt.Start = newSlot.Start
	appt.End = newSlot.End
	newSlot.Available = false
	newSlot.BookingID = appt.ID
	b.mu.Unlock()

	b.logger.Info("appointment rescheduled",
		zap.String("id", appointmentID),
		zap.Time("start", newSlot.Start))

	note, err := b.notifier.AppointmentNote(ctx, NoteReschedule, appt)
	if err != nil {
		return nil, fmt.Errorf("reschedule note: %w", err)
	}
	b.setNotes(appointmentID, note)
	return b.snapshot(appointmentID), nil
}

// Cancel frees the appointment's slot and marks it cancelled. Cancellation
// is terminal: cancelling twice fails with ErrAlreadyCancelled rather than
// regenerating the cancellation message.
func (b *SlotBook) Cancel(ctx context.Context, appointmentID string) error {
	b.mu.Lock()
	appt, ok := b.appointments[appointmentID]
	if !ok {
		b.mu.Unlock()
		return ErrNotFound
	}
	if appt.Status == StatusCancelled {
		b.mu.Unlock()
		return ErrAlreadyCancelled
	}

	if slot, ok := b.slots[slotKey(appt.Start)]; ok {
		slot.Available = true
		slot.BookingID = ""
	}
	appt.Status = StatusCancelled
	b.mu.Unlock()

	b.logger.Info("appointment cancelled", zap.String("id", appointmentID))

	note, err := b.notifier.AppointmentNote(ctx, NoteCancellation, appt)
	if err != nil {
		return fmt.Errorf("cancellation note: %w", err)
	}
	b.setNotes(appointmentID, note)
	return nil
}

// SendReminder generates a reminder payload and records the send time on
// the appointment. Appointment status is unchanged.
func (b *SlotBook) SendReminder(ctx context.Context, appointmentID string) (*Reminder, error) {
	b.mu.Lock()
	appt, ok := b.appointments[appointmentID]
	if !ok {
		b.mu.Unlock()
		return nil, ErrNotFound
	}
	b.mu.Unlock()

	content, err := b.notifier.AppointmentNote(ctx, NoteReminder, appt)
	if err != nil {
		return nil, fmt.Errorf("reminder note: %w", err)
	}

	sentAt := b.now()
	b.mu.Lock()
	appt.RemindersSent = append(appt.RemindersSent, sentAt)
	b.mu.Unlock()

	return &Reminder{
		Content:     content,
		GeneratedAt: sentAt,
		Metadata:    map[string]string{"type": "reminder", "appointment_id": appointmentID},
	}, nil
}

// Get returns a copy of an appointment.
func (b *SlotBook) Get(appointmentID string) (*Appointment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.appointments[appointmentID]; !ok {
		return nil, false
	}
	return b.copyLocked(appointmentID), true
}

// Appointments returns copies of all appointments, cancelled included.
func (b *SlotBook) Appointments() []*Appointment {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Appointment, 0, len(b.appointments))
	for id := range b.appointments {
		out = append(out, b.copyLocked(id))
	}
	return out
}

func (b *SlotBook) setNotes(appointmentID, notes string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if appt, ok := b.appointments[appointmentID]; ok {
		appt.Notes = notes
	}
}

func (b *SlotBook) snapshot(appointmentID string) *Appointment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyLocked(appointmentID)
}

func (b *SlotBook) copyLocked(appointmentID string) *Appointment {
	appt := b.appointments[appointmentID]
	cp := *appt
	cp.RemindersSent = append([]time.Time(nil), appt.RemindersSent...)
	return &cp
}
