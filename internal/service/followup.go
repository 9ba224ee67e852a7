package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/journeykit/delivery/internal/dispatch"
	"github.com/journeykit/delivery/internal/model"
	"github.com/journeykit/delivery/internal/repo"
)

// FollowUps sends a reflection question some time after the day's content.
// Each pending send is a cancellable timer tied to the recipient: if the
// recipient is paused, blocked, or unenrolled before the delay elapses, the
// question is dropped instead of going out as a stray send.
type FollowUps struct {
	journeys    repo.JourneyRepository
	selector    *dispatch.Selector
	delay       time.Duration
	sendTimeout time.Duration

	mu     sync.Mutex
	timers map[int64]*time.Timer
	closed bool
}

func NewFollowUps(journeys repo.JourneyRepository, selector *dispatch.Selector, delay, sendTimeout time.Duration) *FollowUps {
	return &FollowUps{
		journeys:    journeys,
		selector:    selector,
		delay:       delay,
		sendTimeout: sendTimeout,
		timers:      make(map[int64]*time.Timer),
	}
}

// Schedule queues the reflection question for rec. A newer schedule for the
// same recipient replaces any pending one.
func (f *FollowUps) Schedule(rec model.Recipient, question string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	if t, ok := f.timers[rec.ID]; ok {
		t.Stop()
	}
	f.timers[rec.ID] = time.AfterFunc(f.delay, func() {
		f.fire(rec.ID, question)
	})
}

// Cancel drops any pending follow-up for a recipient.
func (f *FollowUps) Cancel(recipientID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.timers[recipientID]; ok {
		t.Stop()
		delete(f.timers, recipientID)
	}
}

// Close cancels all pending follow-ups. New schedules are ignored.
func (f *FollowUps) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for id, t := range f.timers {
		t.Stop()
		delete(f.timers, id)
	}
}

func (f *FollowUps) fire(recipientID int64, question string) {
	f.mu.Lock()
	delete(f.timers, recipientID)
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), f.sendTimeout)
	defer cancel()

	log := slog.With("recipient_id", recipientID)

	// Status may have changed while the timer ran; re-read before sending.
	rec, err := f.journeys.Get(ctx, recipientID)
	if err != nil {
		log.Warn("follow-up dropped, recipient lookup failed", "error", err)
		return
	}
	if rec.Status != model.Active {
		log.Info("follow-up dropped, recipient no longer active", "status", rec.Status)
		return
	}

	dispatcher, err := f.selector.Select(rec.Platform)
	if err != nil {
		log.Error("follow-up dropped", "error", err)
		return
	}

	msg := "Reflection question:\n\n" + question
	if err := dispatcher.SendText(ctx, rec.Destination, msg); err != nil {
		log.Warn("follow-up send failed", "error", err)
		return
	}
	log.Info("follow-up sent")
}
