package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus is the training assignment lifecycle state
type AssignmentStatus string

const (
	AssignmentStatusDraft     AssignmentStatus = "draft"
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusRunning   AssignmentStatus = "running"
	AssignmentStatusStopped   AssignmentStatus = "stopped"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusDraft, AssignmentStatusActive, AssignmentStatusRunning,
		AssignmentStatusStopped, AssignmentStatusCompleted:
		return true
	}
	return false
}

// CanShoot reports whether a shoot run may materialize logs for this state
func (s AssignmentStatus) CanShoot() bool {
	return s == AssignmentStatusActive || s == AssignmentStatusRunning
}

// Assignment is a training course assignment delivered by enrollment email
type Assignment struct {
	Base
	CompanyID        uuid.UUID        `json:"company_id" db:"company_id"`
	Title            string           `json:"title" db:"title"`
	Description      string           `json:"description" db:"description"`
	Status           AssignmentStatus `json:"status" db:"status"`
	StartDate        time.Time        `json:"start_date" db:"start_date"`
	EndDate          time.Time        `json:"end_date" db:"end_date"`
	Days             string           `json:"days" db:"days"`
	SendingProfileID uuid.UUID        `json:"sending_profile_id" db:"sending_profile_id"`
}

// RunsOn reports whether the assignment's weekday list includes the given
// day. Same semantics as campaigns: empty means every day.
func (a *Assignment) RunsOn(day time.Weekday) bool {
	if strings.TrimSpace(a.Days) == "" {
		return true
	}
	want := strings.ToLower(day.String())
	for _, d := range strings.Split(a.Days, ",") {
		d = strings.TrimSpace(strings.ToLower(d))
		if d == want || d == want[:3] {
			return true
		}
	}
	return false
}

// AssignmentLog is the per-recipient enrollment record for an assignment,
// sharing the email log status machine and tracking secret semantics.
type AssignmentLog struct {
	Base
	AssignmentID uuid.UUID      `json:"assignment_id" db:"assignment_id"`
	UserID       uuid.UUID      `json:"user_id" db:"user_id"`
	UserEmail    string         `json:"user_email" db:"user_email"`
	SecretKey    uuid.UUID      `json:"secret_key" db:"secret_key"`
	Status       EmailLogStatus `json:"status" db:"status"`
	EmailContent string         `json:"email_content" db:"email_content"`
	Placeholders Placeholders   `json:"placeholders" db:"placeholders"`
	SenderMeta   SenderMeta     `json:"email_template" db:"sender_meta"`
	Note         string         `json:"note" db:"note"`
	ClaimedAt    *time.Time     `json:"-" db:"claimed_at"`
}
