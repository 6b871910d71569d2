package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/survey/internal/e2etest"
	"github.com/stretchr/testify/require"
)

// sinkDouble records the answer records posted to it. While failing is set it drops the connection, which the
// client sees as a transport error.
type sinkDouble struct {
	mu      sync.Mutex
	records []map[string]string
	failing atomic.Bool
}

func newSinkDouble(t *testing.T) (*sinkDouble, *httptest.Server) {
	t.Helper()
	d := &sinkDouble{} //nolint:exhaustruct // zero values are fine.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.failing.Load() {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
			http.Error(w, "hijack not supported", http.StatusInternalServerError)
			return
		}
		var record map[string]string
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.mu.Lock()
		d.records = append(d.records, record)
		d.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"result":"success"}`)
	}))
	t.Cleanup(srv.Close)
	return d, srv
}

func (d *sinkDouble) Records() []map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]map[string]string(nil), d.records...)
}

// startSurveyServer runs the web front end on a random port against sinkURL. env overrides the test defaults.
func startSurveyServer(t *testing.T, sinkURL string, env map[string]string) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	lookupEnv := func(key string) (string, bool) {
		if v, ok := env[key]; ok {
			return v, true
		}
		switch key {
		case "SURVEY_ADDR":
			return "localhost:0", true
		case "SURVEY_SQLITE_URL":
			return ":memory:", true
		case "SURVEY_SINK_URL":
			return sinkURL, true
		case "SURVEY_AUTO_ADVANCE_DELAY":
			return "10ms", true
		case "SURVEY_TIMEZONE":
			return "UTC", true
		case "SURVEY_FALLBACK_CONTACT":
			return "help@example.com", true
		default:
			return "", false
		}
	}
	server, err := e2etest.StartServer(ctx, io.Discard, lookupEnv, run)
	require.NoError(t, err)
	return server
}

// activeStep returns the id of the only visible step.
func activeStep(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	visible := doc.Find("fieldset.step:not([hidden])")
	require.Equal(t, 1, visible.Length(), "exactly one step must be visible")
	id, _ := visible.Attr("id")
	return id
}

func next(t *testing.T, client *e2etest.Client, doc *goquery.Document, values map[string]string) *goquery.Document {
	t.Helper()
	doc, err := client.SubmitForm(context.Background(), doc, "#survey-form", "#next", values)
	require.NoError(t, err)
	return doc
}

var contactDetails = map[string]string{
	"postcode":  "sw1a 1aa",
	"address":   "10 Downing Street",
	"name":      "Jo Bloggs",
	"telephone": "020 7946 0000",
	"email":     "jo@example.com",
}

// walkToLastStep answers the first four steps without auto-advance.
func walkToLastStep(t *testing.T, client *e2etest.Client) *goquery.Document {
	t.Helper()
	doc, err := client.GetDoc(context.Background(), "/")
	require.NoError(t, err)
	doc = next(t, client, doc, map[string]string{"fuelType": "Oil"})
	doc = next(t, client, doc, map[string]string{"bedrooms": "2"})
	doc = next(t, client, doc, map[string]string{"propertyType": "Flat"})
	doc = next(t, client, doc, contactDetails)
	require.Equal(t, "step-5", activeStep(t, doc))
	return doc
}
