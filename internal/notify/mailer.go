package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"sync"

	"github.com/myrjola/survey/internal/errors"
)

// LogMailer logs messages instead of delivering them. Used when no SMTP server is configured.
type LogMailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger, mu: sync.Mutex{}, sent: nil}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.logger.LogAttrs(ctx, slog.LevelInfo, "mail not delivered, no SMTP server configured",
		slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

// Sent returns the messages passed to Send so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer creates a mailer for the relay at addr. Authentication is skipped when username is empty.
func NewSMTPMailer(addr, username, password, from string) (*SMTPMailer, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrap(err, "split smtp address", slog.String("smtp_addr", addr))
	}
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{addr: addr, from: from, auth: auth}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	body, err := encode(m.from, msg)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, body)
	}()
	select {
	case err = <-errCh:
		if err != nil {
			return errors.Wrap(err, "send mail", slog.String("smtp_addr", m.addr))
		}
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "send mail", slog.String("smtp_addr", m.addr))
	}
}

// encode renders msg as a multipart/alternative MIME message.
func encode(from string, msg Message) ([]byte, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, errors.Wrap(err, "create mime part")
		}
		if _, err = pw.Write([]byte(part.content)); err != nil {
			return nil, errors.Wrap(err, "write mime part")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart writer")
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", mime.QEncoding.Encode("UTF-8", company)+" <"+from+">")
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", w.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
