package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/journeykit/delivery/internal/dispatch"
	"github.com/journeykit/delivery/internal/journey"
	"github.com/journeykit/delivery/internal/lock"
	"github.com/journeykit/delivery/internal/metrics"
	"github.com/journeykit/delivery/internal/model"
	"github.com/journeykit/delivery/internal/repo"
)

// Deliverer drives one tick of journey delivery: select due recipients, and
// for each one lock, decide, dispatch, persist, audit, unlock. Recipients
// are isolated; one failing never aborts the others. Only a failure to list
// due recipients aborts the whole tick.
type Deliverer struct {
	journeys repo.JourneyRepository
	content  repo.ContentRepository
	audits   repo.AuditRepository
	locks    lock.Locker
	selector *dispatch.Selector
	retry    dispatch.RetryPolicy

	lockTTL     time.Duration
	batchSize   int
	concurrency int

	followups *FollowUps

	now func() time.Time
}

type DelivererConfig struct {
	LockTTL     time.Duration
	BatchSize   int
	Concurrency int
	Retry       dispatch.RetryPolicy
}

func NewDeliverer(
	journeys repo.JourneyRepository,
	content repo.ContentRepository,
	audits repo.AuditRepository,
	locks lock.Locker,
	selector *dispatch.Selector,
	cfg DelivererConfig,
) (*Deliverer, error) {
	if cfg.LockTTL <= 0 {
		return nil, errors.New("lock ttl must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("batch size must be > 0")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Deliverer{
		journeys:    journeys,
		content:     content,
		audits:      audits,
		locks:       locks,
		selector:    selector,
		retry:       cfg.Retry,
		lockTTL:     cfg.LockTTL,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}, nil
}

// WithFollowUps enables deferred reflection sends after each delivery.
func (d *Deliverer) WithFollowUps(f *FollowUps) *Deliverer {
	d.followups = f
	return d
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeDelivered
	outcomePaused
	outcomeFailed
)

type TickStats struct {
	Selected  int
	Delivered int
	Paused    int
	Failed    int
	Skipped   int
}

// RunTick processes every due recipient once. The returned error is non-nil
// only when the store itself was unavailable and the tick was aborted.
func (d *Deliverer) RunTick(ctx context.Context) (TickStats, error) {
	var stats TickStats

	recipients, err := d.journeys.ListDue(ctx, d.now(), d.batchSize)
	if err != nil {
		metrics.TickAborts.Inc()
		return stats, fmt.Errorf("list due recipients: %w", err)
	}
	stats.Selected = len(recipients)
	if len(recipients) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, rec := range recipients {
		rec := rec
		g.Go(func() error {
			out := d.deliverOne(gctx, rec)
			mu.Lock()
			defer mu.Unlock()
			switch out {
			case outcomeDelivered:
				stats.Delivered++
			case outcomePaused:
				stats.Paused++
			case outcomeFailed:
				stats.Failed++
			default:
				stats.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	return stats, nil
}

func (d *Deliverer) deliverOne(ctx context.Context, rec model.Recipient) outcome {
	log := slog.With("recipient_id", rec.ID, "bot_id", rec.BotID, "day", rec.CurrentDay)

	key := lock.Key{RecipientID: rec.ID, Day: rec.CurrentDay}
	token, err := d.locks.Acquire(ctx, key, d.lockTTL)
	if errors.Is(err, lock.ErrAlreadyHeld) {
		// Expected under concurrent workers: someone else owns this one.
		metrics.LockContention.Inc()
		return outcomeSkipped
	}
	if err != nil {
		log.Error("lock acquire failed", "error", err)
		return outcomeSkipped
	}
	defer func() {
		if err := d.locks.Release(ctx, key, token); err != nil && !errors.Is(err, lock.ErrNotOwner) {
			log.Warn("lock release failed", "error", err)
		}
	}()

	// The selection snapshot is stale by now: another worker may have
	// delivered this day already, or an external command may have moved
	// the recipient. Re-read under the lock; current_day is the sole
	// source of truth.
	fresh, err := d.journeys.Get(ctx, rec.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return outcomeSkipped
	}
	if err != nil {
		log.Error("recipient re-read failed", "error", err)
		return outcomeSkipped
	}
	if fresh.CurrentDay != key.Day {
		// The locked day is no longer pending; never deliver it twice.
		return outcomeSkipped
	}
	rec = *fresh

	content, err := d.content.GetByDay(ctx, rec.BotID, rec.CurrentDay)
	if err != nil {
		log.Error("content lookup failed", "error", err)
		return outcomeSkipped
	}

	dec := journey.Decide(rec, content)
	switch dec.Action {
	case journey.Pause:
		return d.pauseForGap(ctx, rec, log)
	case journey.Deliver:
		return d.deliver(ctx, rec, content, log)
	default:
		// External mutation between selection and locking; nothing to do.
		metrics.Deliveries.WithLabelValues("skipped").Inc()
		return outcomeSkipped
	}
}

func (d *Deliverer) pauseForGap(ctx context.Context, rec model.Recipient, log *slog.Logger) outcome {
	if err := d.journeys.Pause(ctx, rec.ID); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			// Someone else already moved the recipient; drop quietly.
			return outcomeSkipped
		}
		log.Error("pause failed", "error", err)
		return outcomeSkipped
	}

	log.Warn("content gap, recipient paused")
	d.audit(ctx, model.DeliveryAudit{
		RecipientID: rec.ID,
		Day:         rec.CurrentDay,
		Outcome:     model.OutcomePaused,
		Detail:      "content gap",
		CreatedAt:   d.now().UTC(),
	}, log)
	metrics.Deliveries.WithLabelValues("paused").Inc()
	return outcomePaused
}

func (d *Deliverer) deliver(ctx context.Context, rec model.Recipient, content *model.ContentItem, log *slog.Logger) outcome {
	err := d.send(ctx, rec, content)
	if err != nil {
		permanent := dispatch.IsPermanent(err)
		log.Error("delivery failed", "error", err, "permanent", permanent)
		// State stays put: the same day is retried next tick once the
		// lock has expired. Permanent failures are flagged so the
		// command-handling collaborator can deactivate the recipient.
		d.audit(ctx, model.DeliveryAudit{
			RecipientID: rec.ID,
			Day:         rec.CurrentDay,
			Outcome:     model.OutcomeFailed,
			Detail:      err.Error(),
			Deactivate:  permanent,
			CreatedAt:   d.now().UTC(),
		}, log)
		metrics.Deliveries.WithLabelValues("failed").Inc()
		return outcomeFailed
	}

	nextDay, status := journey.AfterDelivery(rec)
	if err := d.journeys.Advance(ctx, rec.ID, rec.CurrentDay, d.now(), status); err != nil {
		// The send happened; a conflict means an external command raced
		// us. Audit the send either way so analytics sees it.
		log.Warn("advance after delivery failed", "error", err)
	} else if status == model.Completed {
		log.Info("journey completed", "final_day", rec.CurrentDay)
	}

	d.audit(ctx, model.DeliveryAudit{
		RecipientID: rec.ID,
		Day:         rec.CurrentDay,
		Outcome:     model.OutcomeDelivered,
		CreatedAt:   d.now().UTC(),
	}, log)
	metrics.Deliveries.WithLabelValues("delivered").Inc()

	if d.followups != nil && content.Reflection != "" && status != model.Completed {
		d.followups.Schedule(rec, content.Reflection)
	}

	log.Info("content delivered", "next_day", nextDay, "status", status)
	return outcomeDelivered
}

func (d *Deliverer) send(ctx context.Context, rec model.Recipient, content *model.ContentItem) error {
	dispatcher, err := d.selector.Select(rec.Platform)
	if err != nil {
		return err
	}

	text := FormatDayMessage(content.Day, content.Title, content.Body)

	return d.retry.Do(ctx, func(ctx context.Context) error {
		if err := dispatcher.SendText(ctx, rec.Destination, text); err != nil {
			return err
		}
		if content.HasMedia() {
			return dispatcher.SendMedia(ctx, rec.Destination, content.MediaType, *content.MediaURL, content.Title)
		}
		return nil
	})
}

func (d *Deliverer) audit(ctx context.Context, a model.DeliveryAudit, log *slog.Logger) {
	if err := d.audits.Record(ctx, a); err != nil {
		log.Error("audit record failed", "outcome", a.Outcome, "error", err)
	}
}

// FormatDayMessage builds the outbound text for one journey day.
func FormatDayMessage(day int, title, body string) string {
	if title != "" {
		return fmt.Sprintf("Day %d: %s\n\n%s", day, title, body)
	}
	return fmt.Sprintf("Day %d\n\n%s", day, body)
}

// Resume reactivates a paused recipient, typically after a content gap has
// been filled. This is the explicit entry point for external collaborators;
// the engine never auto-resumes.
func (d *Deliverer) Resume(ctx context.Context, recipientID int64) error {
	if err := d.journeys.Resume(ctx, recipientID); err != nil {
		return err
	}
	slog.Info("recipient resumed", "recipient_id", recipientID)
	return nil
}
