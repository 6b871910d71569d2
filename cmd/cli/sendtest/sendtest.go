// Package sendtest posts a sample answer record to a sink.
package sendtest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/myrjola/survey/internal/envstruct"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/sink"
	"github.com/myrjola/survey/internal/survey"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "sink",
	Title: "Sink operations",
}

type config struct {
	SinkURL string `env:"SURVEY_SINK_URL" envDefault:"http://localhost:4001/exec"`
}

func init() {
	SendTest.Flags().String("url", "", "sink endpoint, defaults to $SURVEY_SINK_URL")
	SendTest.Flags().String("email", "", "e-mail address receiving the confirmation, none by default")
	SendTest.Flags().Duration("timeout", 30*time.Second, "bound of the request") //nolint:mnd // same as the survey.
}

var SendTest = &cobra.Command{
	Use:     "send-test",
	GroupID: "sink",
	Short:   "Send a test submission",
	Long:    "Posts a sample record and checks the envelope the sink answers with",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var cfg config
		if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
			return errors.Wrap(err, "populate config")
		}
		if url, _ := cmd.Flags().GetString("url"); url != "" {
			cfg.SinkURL = url
		}
		email, _ := cmd.Flags().GetString("email")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := Send(ctx, cfg.SinkURL, SampleRecord(time.Now(), email)); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sink at %s accepted the test submission\n", cfg.SinkURL)
		return nil
	},
}

// SampleRecord returns a complete record of the bundled questionnaire.
func SampleRecord(now time.Time, email string) survey.AnswerRecord {
	return survey.AnswerRecord{
		survey.TimestampKey: survey.FormatTimestamp(now, time.Local),
		"fuelType":          "Gas",
		"bedrooms":          "3",
		"propertyType":      "Semi-detached",
		"postcode":          "SW1A 1AA",
		"address":           "1 Test Street",
		"name":              "Test Submission",
		"telephone":         "020 7946 0000",
		"email":             email,
		"contactTime":       "Any time",
		"message":           "Sent by survey-cli send-test",
	}
}

// Send posts record in inspect mode so that a rejected submission fails.
func Send(ctx context.Context, url string, record survey.AnswerRecord) error {
	client, err := sink.New(url, sink.ModeInspect, nil)
	if err != nil {
		return errors.Wrap(err, "new sink client")
	}
	if err = client.Send(ctx, record); err != nil {
		return errors.Wrap(err, "send test submission")
	}
	return nil
}
