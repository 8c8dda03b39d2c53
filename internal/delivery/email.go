// Package delivery sends an assembled edition to its readers.
package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"path/filepath"
	"strings"
	"time"

	"arcinfo-pdf/internal/components/assert"
	"arcinfo-pdf/internal/components/chrono"
	"arcinfo-pdf/internal/components/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

const report_mailer_send = "mailer.send"

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type Config struct {
	To   []string   `json:"to"`
	Smtp SmtpConfig `json:"smtp"`
}

// Enabled reports whether there is anyone to deliver to.
func (c Config) Enabled() bool {
	return len(c.To) > 0
}

// SendFunc matches (*email.Email).Send, it is swapped out in tests.
type SendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

type Mailer struct {
	config Config
	send   SendFunc
	tel    telemetry.API
}

func NewMailer(config Config, tel telemetry.API) Mailer {
	assert.NotNil(tel)
	return Mailer{
		config: config,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
		tel: telemetry.NewScopedAPI("delivery", tel),
	}
}

// WithSendFunc returns a copy of the mailer that hands messages to send.
func (m Mailer) WithSendFunc(send SendFunc) Mailer {
	m.send = send
	return m
}

// Message builds the email carrying the edition published on `date`.
func (m Mailer) Message(date time.Time, pdfPath string) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("ArcInfo <%s>", m.config.Smtp.EmailAddress)
	mail.To = m.config.To
	mail.Subject = fmt.Sprintf("ArcInfo %s", chrono.EditionDate(date))
	mail.Text = []byte(fmt.Sprintf(
		"The ArcInfo edition of %s is attached (%s).\n",
		date.Format("02.01.2006"),
		filepath.Base(pdfPath),
	))

	_, err := mail.AttachFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", pdfPath, err)
	}
	return mail, nil
}

// Send emails the edition PDF to every configured recipient. When the
// server does not support AUTH the message is sent unauthenticated.
func (m Mailer) Send(ctx context.Context, date time.Time, pdfPath string) error {
	_, span := telemetry.Tracer().Start(ctx, "mailer:Send")
	defer span.End()

	mail, err := m.Message(date, pdfPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build email")
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.config.Smtp.Server, m.config.Smtp.Port)
	auth := smtp.PlainAuth("", m.config.Smtp.EmailAddress, m.config.Smtp.Password, m.config.Smtp.Server)

	err = m.send(mail, addr, auth)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, addr, nil)
	}
	if err != nil {
		m.tel.ReportBroken(report_mailer_send, err, addr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send edition: %w", err)
	}

	m.tel.ReportDebug("sent edition", m.config.To, pdfPath)
	return nil
}
