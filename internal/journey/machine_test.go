package journey

import (
	"testing"

	"github.com/journeykit/delivery/internal/model"
)

func activeRecipient(day, journeyDays int) model.Recipient {
	return model.Recipient{
		ID:          42,
		BotID:       1,
		Status:      model.Active,
		CurrentDay:  day,
		JourneyDays: journeyDays,
	}
}

func TestDecide_DeliversWhenContentExists(t *testing.T) {
	t.Parallel()

	r := activeRecipient(3, 30)
	c := &model.ContentItem{BotID: 1, Day: 3, Body: "day three", IsActive: true}

	d := Decide(r, c)
	if d.Action != Deliver {
		t.Fatalf("expected Deliver, got %s (%s)", d.Action, d.Reason)
	}
	if d.Day != 3 {
		t.Fatalf("expected day 3, got %d", d.Day)
	}
}

func TestDecide_PausesOnContentGap(t *testing.T) {
	t.Parallel()

	r := activeRecipient(3, 30)

	d := Decide(r, nil)
	if d.Action != Pause {
		t.Fatalf("expected Pause on missing content, got %s", d.Action)
	}
	if d.Reason != "content gap" {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
}

func TestDecide_InactiveContentIsAGap(t *testing.T) {
	t.Parallel()

	r := activeRecipient(7, 30)
	c := &model.ContentItem{BotID: 1, Day: 7, Body: "retired", IsActive: false}

	d := Decide(r, c)
	if d.Action != Pause {
		t.Fatalf("expected Pause on inactive content, got %s", d.Action)
	}
}

func TestDecide_SkipsNonActiveStatuses(t *testing.T) {
	t.Parallel()

	c := &model.ContentItem{BotID: 1, Day: 1, Body: "x", IsActive: true}

	for _, status := range []model.Status{model.Paused, model.Completed, model.Blocked} {
		r := activeRecipient(1, 30)
		r.Status = status

		d := Decide(r, c)
		if d.Action != Skip {
			t.Fatalf("status %s: expected Skip, got %s", status, d.Action)
		}
	}
}

func TestAfterDelivery_AdvancesDay(t *testing.T) {
	t.Parallel()

	r := activeRecipient(3, 30)
	nextDay, status := AfterDelivery(r)

	if nextDay != 4 {
		t.Fatalf("expected next day 4, got %d", nextDay)
	}
	if status != model.Active {
		t.Fatalf("expected status active, got %s", status)
	}
}

func TestAfterDelivery_CompletesOnLastDay(t *testing.T) {
	t.Parallel()

	// Day 5 of a 5-day journey: delivery succeeds, journey is done.
	r := activeRecipient(5, 5)
	nextDay, status := AfterDelivery(r)

	if nextDay != 6 {
		t.Fatalf("expected next day 6, got %d", nextDay)
	}
	if status != model.Completed {
		t.Fatalf("expected status completed, got %s", status)
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to model.Status }{
		{model.Active, model.Paused},
		{model.Active, model.Completed},
		{model.Active, model.Blocked},
		{model.Paused, model.Active},
		{model.Paused, model.Blocked},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Fatalf("expected %s→%s to be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to model.Status }{
		{model.Completed, model.Active},
		{model.Blocked, model.Active},
		{model.Paused, model.Completed},
		{model.Active, model.Active},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Fatalf("expected %s→%s to be denied", tr.from, tr.to)
		}
	}
}
