package model

import "github.com/google/uuid"

// LandingPage is the phishing landing page content served to recipients who
// follow a tracked link.
type LandingPage struct {
	Base
	CompanyID            *uuid.UUID `json:"company_id" db:"company_id"`
	Title                string     `json:"title" db:"title"`
	HTMLContent          string     `json:"html_content" db:"html_content"`
	CaptureSubmittedData bool       `json:"capture_submitted_data" db:"capture_submitted_data"`
	CapturePassword      bool       `json:"capture_password" db:"capture_password"`
	RedirectURL          string     `json:"redirect_url" db:"redirect_url"`
	Status               string     `json:"status" db:"status"`
}
