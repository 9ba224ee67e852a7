// Package journey holds the pure decision logic for advancing a recipient
// through a day-numbered content journey.
package journey

import (
	"fmt"

	"github.com/journeykit/delivery/internal/model"
)

type Action string

const (
	// Skip means nothing to do for this recipient this tick.
	Skip Action = "skip"
	// Deliver means send content for the recipient's current day.
	Deliver Action = "deliver"
	// Pause means no active content exists for the current day (content
	// gap); the recipient is parked until explicitly resumed.
	Pause Action = "pause"
)

type Decision struct {
	Action Action
	Day    int
	Reason string
}

// transitions is the full set of legal status changes. The engine itself
// only performs active→paused and active→completed; the rest belong to
// external collaborators but are validated here so guarded updates can
// reject anything outside the table.
var transitions = map[model.Status]map[model.Status]bool{
	model.Active:    {model.Paused: true, model.Completed: true, model.Blocked: true},
	model.Paused:    {model.Active: true, model.Blocked: true},
	model.Completed: {},
	model.Blocked:   {},
}

// CanTransition reports whether from→to is a legal status change.
func CanTransition(from, to model.Status) bool {
	return transitions[from][to]
}

// Decide computes the next action for a recipient given the content item for
// their current day. content is nil when the day has no active item.
// Decide never mutates anything; callers persist the consequences.
func Decide(r model.Recipient, content *model.ContentItem) Decision {
	if r.Status != model.Active {
		return Decision{Action: Skip, Day: r.CurrentDay, Reason: fmt.Sprintf("status is %s", r.Status)}
	}
	if content == nil || !content.IsActive {
		return Decision{Action: Pause, Day: r.CurrentDay, Reason: "content gap"}
	}
	return Decision{Action: Deliver, Day: r.CurrentDay}
}

// AfterDelivery computes the recipient's next day and status following a
// successful send for day. Completion triggers once the day just delivered
// was the journey's last.
func AfterDelivery(r model.Recipient) (nextDay int, status model.Status) {
	nextDay = r.CurrentDay + 1
	status = r.Status
	if nextDay > r.JourneyDays {
		status = model.Completed
	}
	return nextDay, status
}
