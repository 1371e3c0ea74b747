package model

import "github.com/google/uuid"

// UserStatus is the recipient account state; only active users are targeted
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusDeleted  UserStatus = "deleted"
)

// User is a campaign recipient belonging to a company
type User struct {
	Base
	CompanyID uuid.UUID  `json:"company_id" db:"company_id"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	Email     string     `json:"email" db:"email"`
	Status    UserStatus `json:"status" db:"status"`
}

// EmailTemplate is the message template referenced by a campaign
type EmailTemplate struct {
	Base
	CompanyID    *uuid.UUID   `json:"company_id" db:"company_id"`
	Title        string       `json:"title" db:"title"`
	FromName     string       `json:"from_name" db:"from_name"`
	FromEmail    string       `json:"from_email" db:"from_email"`
	Subject      string       `json:"subject" db:"subject"`
	HTMLContent  string       `json:"html_content" db:"html_content"`
	EmailHeaders EmailHeaders `json:"email_headers" db:"email_headers"`
}

// Domain is the landing-page domain referenced by a campaign
type Domain struct {
	Base
	CompanyID *uuid.UUID `json:"company_id" db:"company_id"`
	Title     string     `json:"title" db:"title"`
	Status    string     `json:"status" db:"status"`
}
