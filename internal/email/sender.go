// Package email delivers rendered messages over SMTP using a campaign's
// sending profile.
package email

import (
	"crypto/tls"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
	"github.com/phishsentinel/phishsentinel-api/pkg/security"
)

// Message is one rendered outbound email.
type Message struct {
	FromName  string
	FromEmail string
	ToName    string
	ToEmail   string
	Subject   string
	HTMLBody  string
	Headers   model.EmailHeaders
}

// Sender dials SMTP per sending profile. Profiles store their password
// AES-GCM encrypted; the sender decrypts at dial time and never holds
// plaintext beyond the send.
type Sender interface {
	Send(profile *model.SendingProfile, msg *Message) error
}

const defaultSendTimeout = 30 * time.Second

type smtpSender struct {
	encryptor security.Encryptor
	timeout   time.Duration

	// dialAndSend is swapped out in tests.
	dialAndSend func(d *gomail.Dialer, m *gomail.Message) error
}

func NewSender(encryptor security.Encryptor, timeout time.Duration) Sender {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &smtpSender{
		encryptor: encryptor,
		timeout:   timeout,
		dialAndSend: func(d *gomail.Dialer, m *gomail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

func (s *smtpSender) Send(profile *model.SendingProfile, msg *Message) error {
	password := profile.Password
	if s.encryptor != nil && password != "" {
		decrypted, err := s.encryptor.DecryptString(password)
		if err != nil {
			return fmt.Errorf("failed to decrypt sending profile password: %w", err)
		}
		password = decrypted
	}

	d := gomail.NewDialer(profile.Host, profile.Port, profile.UserName, password)
	switch profile.Encryption {
	case model.SMTPEncryptionSSLTLS:
		d.SSL = true
	case model.SMTPEncryptionStartTLS:
		d.TLSConfig = &tls.Config{ServerName: profile.Host}
	case model.SMTPEncryptionNone:
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: profile.Host}
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetAddressHeader("To", msg.ToEmail, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Reply-To", msg.FromEmail)
	for _, h := range msg.Headers {
		if h.Name == "" {
			continue
		}
		m.SetHeader(h.Name, h.Value)
	}
	m.SetBody("text/html", msg.HTMLBody)

	// gomail bounds the dial but not the SMTP conversation, so the
	// whole send runs under its own deadline.
	errc := make(chan error, 1)
	go func() { errc <- s.dialAndSend(d, m) }()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", msg.ToEmail, err)
		}
		return nil
	case <-time.After(s.timeout):
		return fmt.Errorf("send to %s timed out after %s", msg.ToEmail, s.timeout)
	}
}
