package scheduler

import (
	"sync"

	"go.uber.org/zap"
)

// Desk hands out one SlotBook per realtor, created lazily.
type Desk struct {
	books    map[string]*SlotBook
	notifier Notifier
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewDesk creates a desk backed by the given note generator.
func NewDesk(notifier Notifier, logger *zap.Logger) *Desk {
	return &Desk{
		books:    make(map[string]*SlotBook),
		notifier: notifier,
		logger:   logger,
	}
}

// Book returns the calendar for a realtor, creating it on first use.
func (d *Desk) Book(realtorID string) *SlotBook {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.books[realtorID]
	if !ok {
		b = NewSlotBook(realtorID, d.notifier, d.logger)
		d.books[realtorID] = b
	}
	return b
}

// Find locates an appointment across all calendars.
func (d *Desk) Find(appointmentID string) (*SlotBook, *Appointment, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.books {
		if appt, ok := b.Get(appointmentID); ok {
			return b, appt, true
		}
	}
	return nil, nil, false
}
