// Package mailer delivers transactional email such as password reset links.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/coursesell/internal/logging"
	sc "github.com/dmitrijs2005/coursesell/internal/server/config"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// sendMail is a seam for smtp.SendMail.
var sendMail = smtp.SendMail

type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPSender(c *sc.Config) *SMTPSender {
	var auth smtp.Auth
	if c.SMTPUser != "" {
		auth = smtp.PlainAuth("", c.SMTPUser, c.SMTPPassword, c.SMTPHost)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(c.SMTPHost, strconv.Itoa(c.SMTPPort)),
		auth: auth,
		from: c.MailFrom,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	msg := "From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body + "\r\n"

	if err := sendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info(ctx, "email not sent, no SMTP host configured", "to", to, "subject", subject, "body", body)
	return nil
}

// New picks SMTP delivery when a host is configured and logging otherwise.
func New(c *sc.Config, l logging.Logger) Sender {
	if c.SMTPHost == "" {
		return NewLogSender(l)
	}
	return NewSMTPSender(c)
}
