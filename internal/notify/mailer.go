package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sunflowerpos/sunflower/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Attachment is an in-memory file sent with a message.
type Attachment struct {
	Name string
	Data []byte
}

// Sender delivers a message with optional attachments.
type Sender interface {
	Send(ctx context.Context, subject, body string, files ...Attachment) error
}

// Mailer sends mail through the configured SMTP relay.
type Mailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)}
}

func (m *Mailer) recipients() []string {
	var to []string
	for _, addr := range strings.Split(m.cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return to
}

func (m *Mailer) Send(ctx context.Context, subject, body string, files ...Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := m.recipients()
	if len(to) == 0 {
		return fmt.Errorf("mail: no recipients configured")
	}
	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	for _, f := range files {
		data := f.Data
		msg.Attach(f.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(data))
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: send %q: %w", subject, err)
	}
	zap.L().Info("mail sent",
		zap.String("namespace", "notify"),
		zap.String("subject", subject),
		zap.Strings("to", to),
		zap.Int("attachments", len(files)))
	return nil
}
