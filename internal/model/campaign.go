package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CampaignType distinguishes immediate phishing campaigns from advance
// campaigns whose logs wait in `schedule` until explicitly released.
type CampaignType string

const (
	CampaignTypePhishing CampaignType = "phishing"
	CampaignTypeAdvance  CampaignType = "advance"
)

func (t CampaignType) Valid() bool {
	switch t {
	case CampaignTypePhishing, CampaignTypeAdvance:
		return true
	}
	return false
}

// CampaignStatus is the campaign lifecycle state
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusStopped   CampaignStatus = "stopped"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusTest      CampaignStatus = "test"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusRunning,
		CampaignStatusStopped, CampaignStatusCompleted, CampaignStatusTest:
		return true
	}
	return false
}

// CanShoot reports whether a shoot run may materialize logs for this state
func (s CampaignStatus) CanShoot() bool {
	return s == CampaignStatusActive || s == CampaignStatusRunning
}

// CanTransition validates a lifecycle transition. Completed is terminal.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	if !to.Valid() {
		return false
	}
	switch s {
	case CampaignStatusCompleted:
		return false
	case CampaignStatusDraft:
		return to == CampaignStatusActive || to == CampaignStatusRunning
	case CampaignStatusActive:
		return to == CampaignStatusRunning || to == CampaignStatusStopped || to == CampaignStatusCompleted
	case CampaignStatusRunning:
		return to == CampaignStatusStopped || to == CampaignStatusCompleted || to == CampaignStatusActive
	case CampaignStatusStopped:
		return to == CampaignStatusActive || to == CampaignStatusCompleted
	}
	return false
}

// SuccessEventType selects which raw engagement event also counts as a
// conversion for the campaign.
type SuccessEventType string

const (
	SuccessEventClick    SuccessEventType = "click"
	SuccessEventCaptured SuccessEventType = "captured"
)

func (t SuccessEventType) Valid() bool {
	return t == SuccessEventClick || t == SuccessEventCaptured
}

// Campaign is a simulated phishing campaign owned by a company
type Campaign struct {
	Base
	CompanyID        uuid.UUID        `json:"company_id" db:"company_id"`
	Title            string           `json:"title" db:"title"`
	Type             CampaignType     `json:"type" db:"type"`
	Language         string           `json:"language" db:"language"`
	Description      string           `json:"description" db:"description"`
	Status           CampaignStatus   `json:"status" db:"status"`
	StartDate        time.Time        `json:"start_date" db:"start_date"`
	EndDate          time.Time        `json:"end_date" db:"end_date"`
	StartTime        int              `json:"start_time" db:"start_time"`
	EndTime          int              `json:"end_time" db:"end_time"`
	TimeZone         string           `json:"time_zone" db:"time_zone"`
	Days             string           `json:"days" db:"days"`
	EmailTemplateID  uuid.UUID        `json:"email_template_id" db:"email_template_id"`
	SendingProfileID uuid.UUID        `json:"sending_profile_id" db:"sending_profile_id"`
	DomainID         uuid.UUID        `json:"domain_id" db:"domain_id"`
	LandingPageID    uuid.UUID        `json:"landing_page_id" db:"landing_page_id"`
	SuccessEventType SuccessEventType `json:"success_event_type" db:"success_event_type"`
}

// RunsOn reports whether the campaign's weekday list includes the given day.
// Days is a comma-separated list of lowercase weekday names; an empty list
// means every day.
func (c *Campaign) RunsOn(day time.Weekday) bool {
	if strings.TrimSpace(c.Days) == "" {
		return true
	}
	want := strings.ToLower(day.String())
	for _, d := range strings.Split(c.Days, ",") {
		d = strings.TrimSpace(strings.ToLower(d))
		if d == want || d == want[:3] {
			return true
		}
	}
	return false
}

// WindowContains reports whether now falls inside the schedule window
func (c *Campaign) WindowContains(now time.Time) bool {
	day := now.Truncate(24 * time.Hour)
	return !day.Before(c.StartDate.Truncate(24*time.Hour)) &&
		!day.After(c.EndDate.Truncate(24*time.Hour))
}

// Expired reports whether the schedule window's end date has passed
func (c *Campaign) Expired(now time.Time) bool {
	return now.Truncate(24 * time.Hour).After(c.EndDate.Truncate(24 * time.Hour))
}

// Validate checks construction invariants on operator input
func (c *Campaign) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("invalid campaign type %q", c.Type)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("invalid campaign status %q", c.Status)
	}
	if c.SuccessEventType != "" && !c.SuccessEventType.Valid() {
		return fmt.Errorf("invalid success event type %q", c.SuccessEventType)
	}
	return nil
}

// AudienceType is the recipient-selection rule kind
type AudienceType string

const (
	AudienceTypeAll        AudienceType = "all"
	AudienceTypeGroup      AudienceType = "group"
	AudienceTypeDepartment AudienceType = "department"
	AudienceTypeTag        AudienceType = "tag"
)

func (t AudienceType) Valid() bool {
	switch t {
	case AudienceTypeAll, AudienceTypeGroup, AudienceTypeDepartment, AudienceTypeTag:
		return true
	}
	return false
}

// AudienceRule is a declarative recipient-selection criterion attached to a
// campaign or assignment. ExcludeList is a comma-separated list of user ids
// that must never be notified.
type AudienceRule struct {
	Base
	CampaignID   uuid.UUID    `json:"campaign_id" db:"campaign_id"`
	AudienceType AudienceType `json:"audience_type" db:"audience_type"`
	GroupID      *uuid.UUID   `json:"audience_group_id" db:"audience_group_id"`
	ExcludeList  string       `json:"exclude_list" db:"exclude_list"`
	Status       string       `json:"status" db:"status"`
}

// ExcludedIDs parses the exclusion list, dropping malformed tokens
func (r *AudienceRule) ExcludedIDs() []uuid.UUID {
	if strings.TrimSpace(r.ExcludeList) == "" {
		return nil
	}
	var ids []uuid.UUID
	for _, tok := range strings.Split(r.ExcludeList, ",") {
		id, err := uuid.Parse(strings.TrimSpace(tok))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
