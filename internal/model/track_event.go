package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the engagement funnel event kind. Events are append-only;
// the funnel (sent, open, click/captured, success, report) is advisory and
// out-of-order events are valid.
type EventType string

const (
	EventSent       EventType = "sent"
	EventOpen       EventType = "open"
	EventClick      EventType = "click"
	EventSuccess    EventType = "success"
	EventCaptured   EventType = "captured"
	EventReport     EventType = "report"
	EventSendFailed EventType = "send_failed"
)

func (t EventType) Valid() bool {
	switch t {
	case EventSent, EventOpen, EventClick, EventSuccess, EventCaptured,
		EventReport, EventSendFailed:
		return true
	}
	return false
}

// Submittable reports whether the kind may arrive via the public tracking
// endpoint; sent/send_failed/success are only written by the platform.
func (t EventType) Submittable() bool {
	return t == EventClick || t == EventCaptured || t == EventReport
}

// TrackEvent is an append-only engagement event correlated to an email log
// both by entity id and tracking secret.
type TrackEvent struct {
	ID            uuid.UUID `json:"id" db:"id"`
	EntityID      uuid.UUID `json:"entity_id" db:"entity_id"`
	SecretKey     uuid.UUID `json:"secret_key" db:"secret_key"`
	Event         EventType `json:"event" db:"event"`
	UserAgent     string    `json:"useragent" db:"useragent"`
	UserAgentRaw  string    `json:"useragent_raw" db:"useragent_raw"`
	OS            string    `json:"os" db:"os"`
	Bot           bool      `json:"bot" db:"bot"`
	IP            string    `json:"ip" db:"ip"`
	SubmittedData string    `json:"submitted_data" db:"submitted_data"`
	RequestHeader string    `json:"request_header" db:"request_header"`
	Note          string    `json:"note" db:"note"`
	City          string    `json:"city" db:"city"`
	State         string    `json:"state" db:"state"`
	Country       string    `json:"country" db:"country"`
	Location      string    `json:"location" db:"location"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// EventCount is a per-kind aggregate used by campaign funnel reports
type EventCount struct {
	Event EventType `json:"event" db:"event"`
	Count int       `json:"count" db:"count"`
}

// BotSplit is the bot vs real traffic aggregate for a campaign
type BotSplit struct {
	Bot  int `json:"bot" db:"bot"`
	Real int `json:"real" db:"real"`
}
