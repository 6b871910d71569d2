// Package notify sends the confirmation e-mail of a stored enquiry.
package notify

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"github.com/myrjola/survey/internal/errors"
)

//go:embed templates
var templateFS embed.FS

const (
	subject = "Your Heat Pump Enquiry - Abacus Energy Solutions"
	company = "Abacus Energy Solutions"
)

// Message is a rendered e-mail with plain text and HTML alternatives.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type enquiryData struct {
	Subject      string
	Company      string
	ContactEmail string
	Name         string
	PropertyType string
	Bedrooms     string
	FuelType     string
	Reference    string
}

// Notifier renders enquiry confirmations and hands them to a [Mailer].
type Notifier struct {
	mailer       Mailer
	contactEmail string
	text         *texttemplate.Template
	html         *htmltemplate.Template
	logger       *slog.Logger
}

func NewNotifier(mailer Mailer, contactEmail string, logger *slog.Logger) (*Notifier, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, errors.Wrap(err, "parse text templates")
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parse html templates")
	}
	return &Notifier{
		mailer:       mailer,
		contactEmail: contactEmail,
		text:         text,
		html:         html,
		logger:       logger,
	}, nil
}

// Compose renders the confirmation for the answers in values. It reports false when values carry no e-mail address.
func (n *Notifier) Compose(values map[string]string, reference string) (Message, bool, error) {
	to := strings.TrimSpace(values["email"])
	if to == "" {
		return Message{}, false, nil
	}
	data := enquiryData{
		Subject:      subject,
		Company:      company,
		ContactEmail: n.contactEmail,
		Name:         valueOr(values, "name", "Valued Customer"),
		PropertyType: valueOr(values, "propertyType", "Property"),
		Bedrooms:     valueOr(values, "bedrooms", "Bedrooms"),
		FuelType:     valueOr(values, "fuelType", "Fuel type"),
		Reference:    reference,
	}
	var text, html bytes.Buffer
	if err := n.text.ExecuteTemplate(&text, "text", data); err != nil {
		return Message{}, false, errors.Wrap(err, "execute text template")
	}
	if err := n.html.ExecuteTemplate(&html, "html", data); err != nil {
		return Message{}, false, errors.Wrap(err, "execute html template")
	}
	return Message{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, true, nil
}

// Notify sends the confirmation when values carry an e-mail address.
func (n *Notifier) Notify(ctx context.Context, values map[string]string, reference string) error {
	msg, ok, err := n.Compose(values, reference)
	if err != nil {
		return err
	}
	if !ok {
		n.logger.LogAttrs(ctx, slog.LevelDebug, "no e-mail address provided", slog.String("reference", reference))
		return nil
	}
	if err = n.mailer.Send(ctx, msg); err != nil {
		return errors.Wrap(err, "send confirmation", slog.String("reference", reference))
	}
	n.logger.LogAttrs(ctx, slog.LevelInfo, "confirmation sent", slog.String("reference", reference))
	return nil
}

func valueOr(values map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(values[key]); v != "" {
		return v
	}
	return fallback
}
