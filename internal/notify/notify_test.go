package notify_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/survey/internal/notify"
	"github.com/myrjola/survey/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

type failingMailer struct{}

func (failingMailer) Send(context.Context, notify.Message) error {
	return errors.New("relay unavailable")
}

func TestNotifier_Notify(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	mailer := notify.NewLogMailer(logger)
	n, err := notify.NewNotifier(mailer, "info@example.com", logger)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, map[string]string{"name": "Jo"}, "ABC234"))
	require.Empty(t, mailer.Sent(), "no address, no mail")

	values := map[string]string{
		"email":        "jo@example.com",
		"name":         "Jo <Bloggs>",
		"propertyType": "Terraced",
		"bedrooms":     "3",
	}
	require.NoError(t, n.Notify(ctx, values, "ABC234"))
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Equal(t, "jo@example.com", msg.To)
	require.Equal(t, "Your Heat Pump Enquiry - Abacus Energy Solutions", msg.Subject)

	require.Contains(t, msg.Text, "Hi Jo <Bloggs>,")
	require.Contains(t, msg.Text, "Terraced • 3 • Fuel type")
	require.Contains(t, msg.Text, "ABC234")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.HTML))
	require.NoError(t, err)
	require.Contains(t, doc.Find(".content p").First().Text(), "Hi Jo <Bloggs>,")
	require.NotContains(t, msg.HTML, "<Bloggs>", "answers are escaped")
	require.Equal(t, "ABC234", doc.Find(".content strong").Eq(1).Text())
}

func TestNotifier_MailerFailure(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	n, err := notify.NewNotifier(failingMailer{}, "info@example.com", logger)
	require.NoError(t, err)
	err = n.Notify(context.Background(), map[string]string{"email": "jo@example.com"}, "")
	require.ErrorContains(t, err, "relay unavailable")
}

func TestNotifier_Defaults(t *testing.T) {
	n, err := notify.NewNotifier(failingMailer{}, "info@example.com", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	msg, ok, err := n.Compose(map[string]string{"email": "jo@example.com"}, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, msg.Text, "Hi Valued Customer,")
	require.Contains(t, msg.Text, "Property • Bedrooms • Fuel type")
	require.NotContains(t, msg.Text, "reference")
}
