package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/survey/internal/e2etest"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
)

// activeStep returns the id of the only visible step.
func activeStep(doc *goquery.Document) (string, error) {
	visible := doc.Find("fieldset.step:not([hidden])")
	if visible.Length() != 1 {
		return "", errors.New("expected exactly one visible step", slog.Int("visible", visible.Length()))
	}
	id, _ := visible.Attr("id")
	return id, nil
}

func expectStep(doc *goquery.Document, want string) error {
	got, err := activeStep(doc)
	if err != nil {
		return err
	}
	if got != want {
		return errors.New("unexpected step", slog.String("want", want), slog.String("got", got))
	}
	return nil
}

// TestSurvey walks every step of the survey. The enquiry is only submitted when submit is set because it reaches the
// real sink.
func TestSurvey(client *e2etest.Client, submit bool) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return errors.Wrap(err, "get survey")
	}
	if err = expectStep(doc, "step-1"); err != nil {
		return err
	}

	// An empty selection must be refused.
	if doc, err = client.SubmitForm(ctx, doc, "#survey-form", "#next", nil); err != nil {
		return errors.Wrap(err, "next without selection")
	}
	if err = expectStep(doc, "step-1"); err != nil {
		return errors.Wrap(err, "empty selection advanced")
	}
	if doc.Find(".alert").Length() == 0 {
		return errors.New("missing selection alert")
	}

	steps := []struct {
		want   string
		values map[string]string
	}{
		{want: "step-2", values: map[string]string{"fuelType": "Gas"}},
		{want: "step-3", values: map[string]string{"bedrooms": "3"}},
		{want: "step-4", values: map[string]string{"propertyType": "Detached"}},
		{want: "step-5", values: map[string]string{
			"postcode":  "SW1A 1AA",
			"address":   "Smoke test",
			"name":      "Smoke Test",
			"telephone": "020 7946 0000",
			"email":     "smoketest@example.com",
		}},
	}
	for _, step := range steps {
		if doc, err = client.SubmitForm(ctx, doc, "#survey-form", "#next", step.values); err != nil {
			return errors.Wrap(err, "next", slog.String("want", step.want))
		}
		if err = expectStep(doc, step.want); err != nil {
			return err
		}
	}

	if !submit {
		return nil
	}
	if doc, err = client.SubmitForm(ctx, doc, "#survey-form", "#submit",
		map[string]string{"contactTime": "Smoke test", "message": "Automated smoke test"}); err != nil {
		return errors.Wrap(err, "submit")
	}
	if doc.Find("#thank-you").Length() != 1 {
		return errors.New("thank-you view not shown", slog.String("alert", doc.Find(".alert").Text()))
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	submit := flag.Bool("submit", false, "submit the enquiry to the configured sink")
	flag.Parse()
	if flag.NArg() != 1 {
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest [-submit] <hostname>")
		os.Exit(1)
	}

	var (
		hostname = flag.Arg(0)
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestSurvey(client, *submit); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing survey", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Bool("submitted", *submit))
	os.Exit(0)
}
