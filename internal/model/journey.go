package model

import "time"

type Status string

const (
	Active    Status = "active"
	Paused    Status = "paused"
	Completed Status = "completed"
	Blocked   Status = "blocked"
)

type Platform string

const (
	WhatsApp Platform = "whatsapp"
	Telegram Platform = "telegram"
)

// Recipient is one end-user enrolled in a bot's day-numbered journey.
// CurrentDay only moves forward; an external restart command is the one
// exception and happens outside this process.
type Recipient struct {
	ID              int64
	BotID           int64
	Platform        Platform
	Destination     string // phone number or chat id, per platform
	Status          Status
	CurrentDay      int
	JourneyDays     int // copied from bot config at enrollment
	LastDeliveredAt *time.Time
	EnrolledAt      time.Time
}

// Progress is the read-only summary exposed on the admin API.
type Progress struct {
	RecipientID   int64   `json:"recipientId"`
	Status        Status  `json:"status"`
	CurrentDay    int     `json:"currentDay"`
	JourneyDays   int     `json:"journeyDays"`
	PercentDone   float64 `json:"percentDone"`
	DaysRemaining int     `json:"daysRemaining"`
}

func (r Recipient) Progress() Progress {
	pct := float64(r.CurrentDay-1) / float64(r.JourneyDays) * 100
	if pct > 100 {
		pct = 100
	}
	remaining := 0
	if r.Status == Active {
		remaining = r.JourneyDays - r.CurrentDay + 1
		if remaining < 0 {
			remaining = 0
		}
	}
	return Progress{
		RecipientID:   r.ID,
		Status:        r.Status,
		CurrentDay:    r.CurrentDay,
		JourneyDays:   r.JourneyDays,
		PercentDone:   pct,
		DaysRemaining: remaining,
	}
}
