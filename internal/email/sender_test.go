package email

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/phishsentinel/phishsentinel-api/internal/model"
)

type stubEncryptor struct{}

func (s *stubEncryptor) Encrypt(data []byte) ([]byte, error)  { return data, nil }
func (s *stubEncryptor) Decrypt(data []byte) ([]byte, error)  { return data, nil }
func (s *stubEncryptor) EncryptString(v string) (string, error) {
	return "enc:" + v, nil
}
func (s *stubEncryptor) DecryptString(v string) (string, error) {
	return "plain-" + v, nil
}

func testProfile() *model.SendingProfile {
	return &model.SendingProfile{
		Host:       "smtp.corp.test",
		Port:       587,
		UserName:   "mailer",
		Password:   "secret",
		Encryption: model.SMTPEncryptionStartTLS,
	}
}

func testMessage() *Message {
	return &Message{
		FromEmail: "it@corp.test",
		ToEmail:   "ada@corp.test",
		Subject:   "hello",
		HTMLBody:  "<p>hi</p>",
	}
}

func TestSendTimesOut(t *testing.T) {
	s := &smtpSender{
		timeout: 20 * time.Millisecond,
		dialAndSend: func(d *gomail.Dialer, m *gomail.Message) error {
			time.Sleep(500 * time.Millisecond)
			return nil
		},
	}

	err := s.Send(testProfile(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestSendDecryptsProfilePassword(t *testing.T) {
	var gotPassword string
	s := &smtpSender{
		encryptor: &stubEncryptor{},
		timeout:   time.Second,
		dialAndSend: func(d *gomail.Dialer, m *gomail.Message) error {
			gotPassword = d.Password
			return nil
		},
	}

	require.NoError(t, s.Send(testProfile(), testMessage()))
	assert.Equal(t, "plain-secret", gotPassword)
}

func TestSendWrapsDialError(t *testing.T) {
	s := &smtpSender{
		timeout: time.Second,
		dialAndSend: func(d *gomail.Dialer, m *gomail.Message) error {
			return errors.New("connection refused")
		},
	}

	err := s.Send(testProfile(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ada@corp.test")
}

func TestNewSenderDefaultsTimeout(t *testing.T) {
	s := NewSender(nil, 0).(*smtpSender)
	assert.Equal(t, defaultSendTimeout, s.timeout)
}
