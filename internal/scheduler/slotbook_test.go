package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubNotifier returns canned notes and can be primed to fail.
type stubNotifier struct {
	calls []NoteKind
	err   error
}

func (s *stubNotifier) AppointmentNote(_ context.Context, kind NoteKind, _ *Appointment) (string, error) {
	s.calls = append(s.calls, kind)
	if s.err != nil {
		return "", s.err
	}
	return "note:" + string(kind), nil
}

var testDay = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func newTestBook(t *testing.T) (*SlotBook, *stubNotifier) {
	t.Helper()
	n := &stubNotifier{}
	b := NewSlotBook("realtor-1", n, zap.NewNop())
	b.SetClock(func() time.Time { return testDay.Add(8 * time.Hour) })
	return b, n
}

func TestAvailableSlotsWithinWindow(t *testing.T) {
	b, _ := newTestBook(t)

	slots := b.AvailableSlots(testDay, 60*time.Minute)
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}

	dayStart := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)
	for _, s := range slots {
		if got := s.End.Sub(s.Start); got != 60*time.Minute {
			t.Errorf("slot %v: duration %v, want 60m", s.Start, got)
		}
		if s.Start.Before(dayStart) || s.End.After(dayEnd) {
			t.Errorf("slot [%v, %v) outside working window", s.Start, s.End)
		}
		if !s.Available {
			t.Errorf("slot %v not available on fresh day", s.Start)
		}
	}

	// 30-minute grid from 09:00, last 60m slot starts at 16:00.
	if slots[0].Start != dayStart {
		t.Errorf("first slot starts %v, want %v", slots[0].Start, dayStart)
	}
	last := slots[len(slots)-1]
	if want := dayEnd.Add(-60 * time.Minute); last.Start != want {
		t.Errorf("last slot starts %v, want %v", last.Start, want)
	}
}

func TestAvailableSlotsStable(t *testing.T) {
	b, _ := newTestBook(t)

	first := b.AvailableSlots(testDay, 30*time.Minute)
	second := b.AvailableSlots(testDay, 30*time.Minute)
	if len(first) != len(second) {
		t.Fatalf("slot count changed between calls: %d vs %d", len(first), len(second))
	}
}

func TestBookMarksSlotUnavailable(t *testing.T) {
	b, n := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	appt, err := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("status = %q, want scheduled", appt.Status)
	}
	if appt.Notes != "note:confirmation" {
		t.Errorf("notes = %q", appt.Notes)
	}
	if len(n.calls) != 1 || n.calls[0] != NoteConfirmation {
		t.Errorf("notifier calls = %v", n.calls)
	}

	// The booked interval must be absent from a fresh listing.
	after := b.AvailableSlots(testDay, 60*time.Minute)
	for _, s := range after {
		if s.Start.Equal(appt.Start) {
			t.Errorf("booked slot %v still listed as available", s.Start)
		}
	}
}

func TestBookUnavailableSlot(t *testing.T) {
	b, _ := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	if _, err := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St"); err != nil {
		t.Fatalf("first book: %v", err)
	}
	_, err := b.Book(context.Background(), "lead-2", slots[0].Start, slots[0].End, "showing", "12 Main St")
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("second book err = %v, want ErrSlotUnavailable", err)
	}
	if got := len(b.Appointments()); got != 1 {
		t.Errorf("appointment count = %d, want 1", got)
	}
}

func TestBookSameInstantDifferentOffset(t *testing.T) {
	b, _ := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	if _, err := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St"); err != nil {
		t.Fatalf("first book: %v", err)
	}

	// Same instant expressed in a different fixed offset must hit the same
	// slot, not create a second one.
	shifted := time.FixedZone("", 2*60*60)
	_, err := b.Book(context.Background(), "lead-2",
		slots[0].Start.In(shifted), slots[0].End.In(shifted), "showing", "12 Main St")
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("offset rebook err = %v, want ErrSlotUnavailable", err)
	}
	if got := len(b.Appointments()); got != 1 {
		t.Errorf("appointment count = %d, want 1", got)
	}

	after := b.AvailableSlots(testDay, 60*time.Minute)
	for _, s := range after {
		if s.Start.Equal(slots[0].Start) {
			t.Errorf("booked slot %v still listed as available", s.Start)
		}
	}
}

func TestBookNotifierFailureKeepsBooking(t *testing.T) {
	b, n := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	n.err = errors.New("provider down")
	_, err := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St")
	if err == nil {
		t.Fatal("expected error from notifier")
	}

	// The slot mutation is committed before the note is generated and is
	// not rolled back on failure.
	after := b.AvailableSlots(testDay, 60*time.Minute)
	for _, s := range after {
		if s.Start.Equal(slots[0].Start) {
			t.Errorf("slot %v should remain booked after notifier failure", s.Start)
		}
	}
	if got := len(b.Appointments()); got != 1 {
		t.Errorf("appointment count = %d, want 1", got)
	}
}

func TestReschedule(t *testing.T) {
	b, _ := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	appt, err := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	moved, err := b.Reschedule(context.Background(), appt.ID, slots[3].Start, slots[3].End)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !moved.Start.Equal(slots[3].Start) || !moved.End.Equal(slots[3].End) {
		t.Errorf("moved to [%v, %v), want [%v, %v)", moved.Start, moved.End, slots[3].Start, slots[3].End)
	}
	if moved.Status != StatusScheduled {
		t.Errorf("status = %q after reschedule, want scheduled", moved.Status)
	}
	if moved.Notes != "note:reschedule" {
		t.Errorf("notes = %q", moved.Notes)
	}

	// Old slot freed, new slot gone.
	after := b.AvailableSlots(testDay, 60*time.Minute)
	var oldFree, newListed bool
	for _, s := range after {
		if s.Start.Equal(slots[0].Start) {
			oldFree = true
			if s.BookingID != "" {
				t.Errorf("freed slot still holds booking %q", s.BookingID)
			}
		}
		if s.Start.Equal(slots[3].Start) {
			newListed = true
		}
	}
	if !oldFree {
		t.Error("old slot not freed")
	}
	if newListed {
		t.Error("new slot still listed as available")
	}
}

func TestRescheduleOntoTakenSlot(t *testing.T) {
	b, _ := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	first, _ := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St")
	if _, err := b.Book(context.Background(), "lead-2", slots[3].Start, slots[3].End, "showing", "34 Oak Ave"); err != nil {
		t.Fatalf("book second: %v", err)
	}

	_, err := b.Reschedule(context.Background(), first.ID, slots[3].Start, slots[3].End)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}

	// Both slots' availability unchanged: neither listed.
	after := b.AvailableSlots(testDay, 60*time.Minute)
	for _, s := range after {
		if s.Start.Equal(slots[0].Start) || s.Start.Equal(slots[3].Start) {
			t.Errorf("slot %v availability changed by failed reschedule", s.Start)
		}
	}
}

func TestRescheduleCancelled(t *testing.T) {
	b, n := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	appt, _ := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St")
	if err := b.Cancel(context.Background(), appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	notesCalls := len(n.calls)
	_, err := b.Reschedule(context.Background(), appt.ID, slots[3].Start, slots[3].End)
	if !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("err = %v, want ErrAlreadyCancelled", err)
	}
	if len(n.calls) != notesCalls {
		t.Error("notifier invoked for rejected reschedule")
	}

	// The target slot must stay free.
	after := b.AvailableSlots(testDay, 60*time.Minute)
	var targetFree bool
	for _, s := range after {
		if s.Start.Equal(slots[3].Start) {
			targetFree = true
		}
	}
	if !targetFree {
		t.Error("target slot bound by cancelled appointment")
	}
}

func TestRescheduleUnknown(t *testing.T) {
	b, _ := newTestBook(t)
	slots := b.AvailableSlots(testDay, 30*time.Minute)
	if _, err := b.Reschedule(context.Background(), "nope", slots[0].Start, slots[0].End); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancel(t *testing.T) {
	b, n := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	appt, _ := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St")
	if err := b.Cancel(context.Background(), appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, ok := b.Get(appt.ID)
	if !ok {
		t.Fatal("cancelled appointment should persist")
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
	if got.Notes != "note:cancellation" {
		t.Errorf("notes = %q", got.Notes)
	}

	// Slot freed again.
	after := b.AvailableSlots(testDay, 60*time.Minute)
	var freed bool
	for _, s := range after {
		if s.Start.Equal(appt.Start) {
			freed = true
		}
	}
	if !freed {
		t.Error("cancelled appointment's slot not freed")
	}

	// Cancellation is terminal; a second cancel must not re-invoke the notifier.
	notesCalls := len(n.calls)
	if err := b.Cancel(context.Background(), appt.ID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel err = %v, want ErrAlreadyCancelled", err)
	}
	if len(n.calls) != notesCalls {
		t.Errorf("notifier re-invoked on double cancel")
	}
}

func TestCancelUnknown(t *testing.T) {
	b, _ := newTestBook(t)
	if err := b.Cancel(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSendReminder(t *testing.T) {
	b, _ := newTestBook(t)
	slots := b.AvailableSlots(testDay, 60*time.Minute)

	appt, _ := b.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "showing", "12 Main St")
	rem, err := b.SendReminder(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("send reminder: %v", err)
	}
	if rem.Content != "note:reminder" {
		t.Errorf("content = %q", rem.Content)
	}
	if rem.Metadata["type"] != "reminder" {
		t.Errorf("metadata = %v", rem.Metadata)
	}

	got, _ := b.Get(appt.ID)
	if len(got.RemindersSent) != 1 {
		t.Fatalf("reminders sent = %d, want 1", len(got.RemindersSent))
	}
	if got.Status != StatusScheduled {
		t.Errorf("status changed by reminder: %q", got.Status)
	}

	if _, err := b.SendReminder(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestDeskPerRealtor(t *testing.T) {
	d := NewDesk(&stubNotifier{}, zap.NewNop())

	a := d.Book("realtor-a")
	if d.Book("realtor-a") != a {
		t.Error("desk should reuse the calendar per realtor")
	}
	if d.Book("realtor-b") == a {
		t.Error("distinct realtors should get distinct calendars")
	}

	slots := a.AvailableSlots(testDay, 30*time.Minute)
	appt, err := a.Book(context.Background(), "lead-1", slots[0].Start, slots[0].End, "call", "phone")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	book, found, ok := d.Find(appt.ID)
	if !ok || book != a || found.ID != appt.ID {
		t.Errorf("Find(%s) = %v, %v, %v", appt.ID, book, found, ok)
	}
	if _, _, ok := d.Find("nope"); ok {
		t.Error("Find on unknown id should fail")
	}
}
