package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EmailLogStatus is the per-recipient delivery state
type EmailLogStatus string

const (
	EmailLogStatusPending    EmailLogStatus = "pending"
	EmailLogStatusSchedule   EmailLogStatus = "schedule"
	EmailLogStatusSent       EmailLogStatus = "sent"
	EmailLogStatusSendFailed EmailLogStatus = "send_failed"
	EmailLogStatusCancelled  EmailLogStatus = "cancelled"
)

func (s EmailLogStatus) Valid() bool {
	switch s {
	case EmailLogStatusPending, EmailLogStatusSchedule, EmailLogStatusSent,
		EmailLogStatusSendFailed, EmailLogStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status cannot change except via restart
func (s EmailLogStatus) Terminal() bool {
	return s == EmailLogStatusCancelled
}

// Placeholders holds the recipient-specific template substitutions rendered
// at materialization time.
type Placeholders struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	URL       string `json:"url"`
}

// EmailHeader is a single custom SMTP header carried on the template
type EmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EmailHeaders persists a header list as JSONB
type EmailHeaders []EmailHeader

// Value implements driver.Valuer
func (h EmailHeaders) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner
func (h *EmailHeaders) Scan(src interface{}) error {
	return scanJSON(src, h)
}

// SenderMeta holds the rendered sender metadata for a recipient log
type SenderMeta struct {
	FromName  string       `json:"from_name"`
	FromEmail string       `json:"from_email"`
	Subject   string       `json:"subject"`
	Headers   EmailHeaders `json:"email_headers,omitempty"`
}

// Value implements driver.Valuer so Placeholders persists as JSONB
func (p Placeholders) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *Placeholders) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// Value implements driver.Valuer so SenderMeta persists as JSONB
func (m SenderMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *SenderMeta) Scan(src interface{}) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported scan type %T", src)
	}
}

// EmailLog is the per-recipient delivery record for a campaign. The secret
// key is the platform-wide unique tracking secret embedded in outbound
// links and pixels.
type EmailLog struct {
	Base
	CampaignID   uuid.UUID      `json:"campaign_id" db:"campaign_id"`
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
