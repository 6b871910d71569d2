package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/myrjola/survey/internal/e2etest"
	"github.com/myrjola/survey/internal/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_application_survey(t *testing.T) {
	ctx := context.Background()
	sink, sinkServer := newSinkDouble(t)
	server := startSurveyServer(t, sinkServer.URL, nil)
	client := server.Client()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, "step-1", activeStep(t, doc))
	progress, _ := doc.Find("#progress").Attr("value")
	assert.Equal(t, "20", progress)
	assert.Equal(t, 0, doc.Find("#previous").Length())
	assert.Equal(t, 1, doc.Find("#next").Length())
	assert.Equal(t, 0, doc.Find("#submit").Length())

	// Next without a selection is refused with an alert.
	assert.Equal(t, 0, doc.Find("input[type=radio][required]").Length(), "the alert replaces native radio validation")
	doc = next(t, client, doc, nil)
	require.Equal(t, "step-1", activeStep(t, doc))
	assert.Equal(t, survey.SelectOptionAlert, strings.TrimSpace(doc.Find(".alert").Text()))

	// Selecting an option auto-advances.
	token, err := e2etest.CSRFToken(doc)
	require.NoError(t, err)
	doc, err = client.PostForm(ctx, "/survey/select", url.Values{"csrf_token": {token}, "fuelType": {"Gas"}})
	require.NoError(t, err)
	require.Equal(t, "step-2", activeStep(t, doc))
	assert.Equal(t, 0, doc.Find(".alert").Length())
	assert.Equal(t, 1, doc.Find("#previous").Length())

	doc = next(t, client, doc, map[string]string{"bedrooms": "3"})
	require.Equal(t, "step-3", activeStep(t, doc))
	progress, _ = doc.Find("#progress").Attr("value")
	assert.Equal(t, "60", progress)

	// Going back keeps the selection.
	doc, err = client.SubmitForm(ctx, doc, "#survey-form", "#previous", nil)
	require.NoError(t, err)
	require.Equal(t, "step-2", activeStep(t, doc))
	_, checked := doc.Find(`input[name=bedrooms][value="3"]`).Attr("checked")
	assert.True(t, checked)
	doc = next(t, client, doc, nil)
	require.Equal(t, "step-3", activeStep(t, doc))

	doc = next(t, client, doc, map[string]string{"propertyType": "Detached"})
	require.Equal(t, "step-4", activeStep(t, doc))

	// Values typed on the contact step survive a round trip to the previous step.
	doc, err = client.SubmitForm(ctx, doc, "#survey-form", "#previous", contactDetails)
	require.NoError(t, err)
	require.Equal(t, "step-3", activeStep(t, doc))
	doc = next(t, client, doc, nil)
	require.Equal(t, "step-4", activeStep(t, doc))
	for _, field := range []string{"address", "name", "telephone", "email"} {
		value, _ := doc.Find("#field-" + field).Attr("value")
		assert.Equal(t, contactDetails[field], value, field)
	}
	postcode, _ := doc.Find("#field-postcode").Attr("value")
	assert.Equal(t, "SW1A 1AA", postcode)
	assert.Equal(t, 0, doc.Find(".field.invalid").Length(), "going back does not validate")

	// A malformed postcode keeps the visitor on the contact step.
	invalid := map[string]string{}
	for k, v := range contactDetails {
		invalid[k] = v
	}
	invalid["postcode"] = "not a postcode"
	doc = next(t, client, doc, invalid)
	require.Equal(t, "step-4", activeStep(t, doc))
	assert.Equal(t, survey.PostcodeMessage, strings.TrimSpace(doc.Find("#message-postcode").Text()))
	assert.Equal(t, 1, doc.Find(".field.invalid #field-postcode").Length())
	address, _ := doc.Find("#field-address").Attr("value")
	assert.Equal(t, contactDetails["address"], address)

	doc = next(t, client, doc, map[string]string{"postcode": "sw1a 1aa"})
	require.Equal(t, "step-5", activeStep(t, doc))
	assert.Equal(t, 0, doc.Find("#next").Length())
	submitLabel := strings.TrimSpace(doc.Find("#submit").Text())
	assert.Equal(t, survey.SubmitLabel, submitLabel)

	doc, err = client.SubmitForm(ctx, doc, "#survey-form", "#submit", map[string]string{
		"contactTime": "Weekday mornings",
		"message":     "South facing roof",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#thank-you").Length())
	assert.Equal(t, 0, doc.Find("#survey-form").Length())

	records := sink.Records()
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "Gas", record["fuelType"])
	assert.Equal(t, "3", record["bedrooms"])
	assert.Equal(t, "Detached", record["propertyType"])
	assert.Equal(t, "SW1A 1AA", record["postcode"])
	assert.Equal(t, "jo@example.com", record["email"])
	assert.Equal(t, "Weekday mornings", record["contactTime"])
	assert.Equal(t, "South facing roof", record["message"])
	assert.NotEmpty(t, record[survey.TimestampKey])

	// The thank-you view persists.
	doc, err = client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#thank-you").Length())
}

func Test_application_surveyTransportFailure(t *testing.T) {
	ctx := context.Background()
	sink, sinkServer := newSinkDouble(t)
	sink.failing.Store(true)
	server := startSurveyServer(t, sinkServer.URL, nil)
	client := server.Client()

	doc := walkToLastStep(t, client)
	values := map[string]string{"contactTime": "Evenings"}
	doc, err := client.SubmitForm(ctx, doc, "#survey-form", "#submit", values)
	require.NoError(t, err)
	require.Equal(t, "step-5", activeStep(t, doc))
	assert.Contains(t, doc.Find(".alert").Text(), "help@example.com")
	assert.Equal(t, 0, doc.Find("#thank-you").Length())
	submit := doc.Find("#submit")
	assert.Equal(t, survey.SubmitLabel, strings.TrimSpace(submit.Text()))
	_, disabled := submit.Attr("disabled")
	assert.False(t, disabled)
	contactTime, _ := doc.Find("#field-contactTime").Attr("value")
	assert.Equal(t, "Evenings", contactTime)
	assert.Empty(t, sink.Records())

	// The visitor retries once the sink is reachable again.
	sink.failing.Store(false)
	doc, err = client.SubmitForm(ctx, doc, "#survey-form", "#submit", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#thank-you").Length())
	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Evenings", records[0]["contactTime"])
	assert.Equal(t, "Oil", records[0]["fuelType"])
}

func Test_application_surveyField(t *testing.T) {
	ctx := context.Background()
	_, sinkServer := newSinkDouble(t)
	server := startSurveyServer(t, sinkServer.URL, nil)
	client := server.Client()

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	token, err := e2etest.CSRFToken(doc)
	require.NoError(t, err)

	tests := []struct {
		name        string
		field       string
		value       string
		wantStatus  int
		wantValue   string
		wantMessage string
	}{
		{
			name:        "malformed postcode",
			field:       "postcode",
			value:       "sw1a",
			wantStatus:  http.StatusOK,
			wantValue:   "SW1A",
			wantMessage: survey.PostcodeMessage,
		},
		{
			name:        "valid postcode clears the message",
			field:       "postcode",
			value:       "sw1a 1aa",
			wantStatus:  http.StatusOK,
			wantValue:   "SW1A 1AA",
			wantMessage: "",
		},
		{
			name:        "unknown field",
			field:       "favouriteColour",
			value:       "green",
			wantStatus:  http.StatusBadRequest,
			wantValue:   "",
			wantMessage: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, postErr := client.Post(ctx, "/survey/field", url.Values{
				"csrf_token": {token},
				"field":      {tt.field},
				"value":      {tt.value},
			})
			require.NoError(t, postErr)
			defer func() {
				_ = resp.Body.Close()
			}()
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got fieldResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.field, got.Field)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Equal(t, tt.wantMessage, got.Message)
		})
	}
}

func Test_application_sessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, sinkServer := newSinkDouble(t)
	server := startSurveyServer(t, sinkServer.URL, nil)

	first := server.Client()
	doc, err := first.GetDoc(ctx, "/")
	require.NoError(t, err)
	doc = next(t, first, doc, map[string]string{"fuelType": "LPG"})
	require.Equal(t, "step-2", activeStep(t, doc))

	second, err := server.NewClient()
	require.NoError(t, err)
	doc, err = second.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, "step-1", activeStep(t, doc))
	_, checked := doc.Find(`input[name=fuelType][value="LPG"]`).Attr("checked")
	assert.False(t, checked)
}

func Test_application_csrf(t *testing.T) {
	ctx := context.Background()
	_, sinkServer := newSinkDouble(t)
	server := startSurveyServer(t, sinkServer.URL, nil)
	client := server.Client()

	_, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)

	resp, err := client.Post(ctx, "/survey/next", url.Values{"fuelType": {"Gas"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = client.Post(ctx, "/survey/next", url.Values{"csrf_token": {"forged"}, "fuelType": {"Gas"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "step-1", activeStep(t, doc))
}

func Test_secureHeaders(t *testing.T) {
	ctx := context.Background()
	_, sinkServer := newSinkDouble(t)
	server := startSurveyServer(t, sinkServer.URL, nil)
	client := server.Client()

	resp, err := client.Get(ctx, "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	csp := resp.Header.Get("Content-Security-Policy")
	require.Contains(t, csp, "'nonce-")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "deny", resp.Header.Get("X-Frame-Options"))

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	nonce, ok := doc.Find("script[src='/static/survey.js']").Attr("nonce")
	require.True(t, ok)
	assert.NotEmpty(t, nonce)

	resp, err = client.Get(ctx, "/static/survey.js")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "immutable")
}

func Test_run_invalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown sink mode", env: map[string]string{"SURVEY_SINK_MODE": "trusting"}},
		{name: "unknown timezone", env: map[string]string{"SURVEY_TIMEZONE": "Mars/Olympus"}},
		{name: "malformed duration", env: map[string]string{"SURVEY_SUBMIT_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookupEnv := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}
			_, err := e2etest.StartServer(context.Background(), io.Discard, lookupEnv, run)
			require.Error(t, err)
		})
	}
}
