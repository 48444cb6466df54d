package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/Skotchmaster/contacts_api/pkg/notify"
)

const appName = "Contacts App"

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers notifications as plain-text mail.
type SMTPSender struct {
	cfg    Config
	dialer dialer
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPSender) Send(ctx context.Context, n notify.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.Message(n)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.Email, err)
	}
	return nil
}

func (s *SMTPSender) Message(n notify.Notification) (*gomail.Message, error) {
	subject, body, err := Compose(s.cfg.BaseURL, n)
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, appName)
	m.SetHeader("To", n.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m, nil
}

// Link returns the URL the recipient follows to use the token.
func Link(baseURL string, n notify.Notification) (string, error) {
	base := strings.TrimRight(baseURL, "/")
	switch n.Purpose {
	case notify.PurposeVerifyEmail:
		return base + "/auth/verify_email/" + url.PathEscape(n.Token), nil
	case notify.PurposeResetPassword:
		return base + "/auth/reset_password?token=" + url.QueryEscape(n.Token), nil
	default:
		return "", fmt.Errorf("%w: %q", notify.ErrUnknownPurpose, n.Purpose)
	}
}

func Compose(baseURL string, n notify.Notification) (subject, body string, err error) {
	link, err := Link(baseURL, n)
	if err != nil {
		return "", "", err
	}

	switch n.Purpose {
	case notify.PurposeVerifyEmail:
		subject = "Verify your email - " + appName
		body = fmt.Sprintf("Hello %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nThe link expires in 2 hours.\n", n.Email, link)
	case notify.PurposeResetPassword:
		subject = "Reset your password - " + appName
		body = fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. Use the link below to choose a new password:\n\n%s\n\nIf you did not request this, ignore this message.\n", n.Email, link)
	}
	return subject, body, nil
}
