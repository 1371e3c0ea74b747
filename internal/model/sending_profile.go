package model

import (
	"fmt"

	"github.com/google/uuid"
)

// SMTPEncryption is the transport security mode for a sending profile
type SMTPEncryption string

const (
	SMTPEncryptionNone     SMTPEncryption = "none"
	SMTPEncryptionStartTLS SMTPEncryption = "starttls"
	SMTPEncryptionSSLTLS   SMTPEncryption = "ssl/tls"
)

func (e SMTPEncryption) Valid() bool {
	switch e {
	case SMTPEncryptionNone, SMTPEncryptionStartTLS, SMTPEncryptionSSLTLS:
		return true
	}
	return false
}

// SendingProfile holds reusable SMTP credentials for outbound delivery.
// Password is stored AES-GCM encrypted; repositories hand out the encrypted
// form and the email sender decrypts at dial time.
type SendingProfile struct {
	Base
	CompanyID   *uuid.UUID     `json:"company_id" db:"company_id"`
	Label       string         `json:"label" db:"label"`
	Description string         `json:"description" db:"description"`
	Host        string         `json:"host" db:"host"`
	Port        int            `json:"port" db:"port"`
	UserName    string         `json:"user_name" db:"user_name"`
	Password    string         `json:"password" db:"password"`
	Encryption  SMTPEncryption `json:"encryption" db:"encryption"`
	Status      string         `json:"status" db:"status"`
}

// Validate checks construction invariants on operator input
func (p *SendingProfile) Validate() error {
	if p.Host == "" {
		return fmt.Errorf("host is required")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	if !p.Encryption.Valid() {
		return fmt.Errorf("invalid encryption %q", p.Encryption)
	}
	return nil
}
