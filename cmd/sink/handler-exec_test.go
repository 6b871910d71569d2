package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/survey/internal/e2etest"
	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/sink"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/survey"
	"github.com/myrjola/survey/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startSink runs the sink on a random port with its database in a temporary directory.
func startSink(t *testing.T, env map[string]string) (*e2etest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	dbURL := filepath.Join(t.TempDir(), "responses.sqlite")
	lookupEnv := func(key string) (string, bool) {
		if v, ok := env[key]; ok {
			return v, true
		}
		switch key {
		case "SINK_ADDR":
			return "localhost:0", true
		case "SINK_SQLITE_URL":
			return dbURL, true
		case "SINK_TIMEZONE":
			return "UTC", true
		default:
			return "", false
		}
	}
	server, err := e2etest.StartServer(ctx, io.Discard, lookupEnv, run)
	require.NoError(t, err)
	return server, dbURL
}

// storedResponses opens the sink database next to the running sink.
func storedResponses(t *testing.T, dbURL string) []repositories.Response {
	t.Helper()
	ctx := context.Background()
	logger := testhelpers.NewLogger(io.Discard)
	columns := survey.HeatPumpEnquiry().RecordColumns()
	db, err := sqlite.NewDatabase(ctx, dbURL, repositories.ResponsesSchema(columns), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo, err := repositories.NewResponseRepository(db, columns, logger)
	require.NoError(t, err)
	responses, err := repo.List(ctx, 0)
	require.NoError(t, err)
	return responses
}

func postEnvelope(t *testing.T, method, url, body string) sink.Envelope {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var env sink.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func Test_application_exec(t *testing.T) {
	ctx := context.Background()
	server, dbURL := startSink(t, nil)
	execURL := server.URL() + "/exec"

	client, err := sink.New(execURL, sink.ModeInspect, nil)
	require.NoError(t, err)
	err = client.Send(ctx, survey.AnswerRecord{
		"timestamp":    "14/10/2026, 15:30:05",
		"fuelType":     "Gas",
		"bedrooms":     "3",
		"propertyType": "Detached",
		"postcode":     "SW1A 1AA",
		"email":        "jo@example.com",
		"ignored":      "not a column",
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		method    string
		body      string
		wantError string
	}{
		{name: "empty GET", method: http.MethodGet, body: "", wantError: "empty request body"},
		{name: "empty POST", method: http.MethodPost, body: "  ", wantError: "empty request body"},
		{name: "malformed JSON", method: http.MethodPost, body: "{", wantError: "decode record"},
		{name: "not an object", method: http.MethodPost, body: "null", wantError: "not a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := postEnvelope(t, tt.method, execURL, tt.body)
			assert.Equal(t, sink.ResultError, env.Result)
			assert.Contains(t, env.Error, tt.wantError)
			assert.Empty(t, env.Reference)
		})
	}

	env := postEnvelope(t, http.MethodPost, execURL, `{"fuelType":"Oil","bedrooms":2,"email":""}`)
	require.Equal(t, sink.ResultSuccess, env.Result)
	require.NotEmpty(t, env.Reference)

	responses := storedResponses(t, dbURL)
	require.Len(t, responses, 2)
	newest, oldest := responses[0], responses[1]
	assert.Equal(t, env.Reference, newest.Reference)
	assert.Equal(t, "2", newest.Values["bedrooms"])
	stamped, err := time.ParseInLocation(survey.TimestampLayout, newest.Values["timestamp"], time.UTC)
	require.NoError(t, err, "records without a timestamp are stamped on arrival")
	assert.WithinDuration(t, time.Now(), stamped, time.Minute)
	assert.Equal(t, "14/10/2026, 15:30:05", oldest.Values["timestamp"])
	assert.Equal(t, "SW1A 1AA", oldest.Values["postcode"])
	assert.Equal(t, "", oldest.Values["message"])
	_, ok := oldest.Values["ignored"]
	assert.False(t, ok)
}

func Test_application_execNotifyFailure(t *testing.T) {
	// Nothing listens on port 1, the relay is unreachable.
	server, dbURL := startSink(t, map[string]string{"SINK_SMTP_ADDR": "127.0.0.1:1"})
	execURL := server.URL() + "/exec"

	env := postEnvelope(t, http.MethodPost, execURL, `{"name":"Jo","email":"jo@example.com"}`)
	assert.Equal(t, sink.ResultError, env.Result)
	assert.Equal(t, "could not send confirmation e-mail", env.Error)
	assert.NotEmpty(t, env.Reference)

	// Without an address no mail is attempted.
	env = postEnvelope(t, http.MethodPost, execURL, `{"name":"Jo"}`)
	assert.Equal(t, sink.ResultSuccess, env.Result)

	responses := storedResponses(t, dbURL)
	require.Len(t, responses, 2)
}

func Test_decodeRecord(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    map[string]string
		wantErr bool
	}{
		{name: "strings", body: `{"a":"x","b":""}`, want: map[string]string{"a": "x", "b": ""}, wantErr: false},
		{name: "numbers and bools", body: `{"n":3,"f":1.5,"b":true}`,
			want: map[string]string{"n": "3", "f": "1.5", "b": "true"}, wantErr: false},
		{name: "null value", body: `{"a":null}`, want: map[string]string{"a": ""}, wantErr: false},
		{name: "array", body: `[1,2]`, want: nil, wantErr: true},
		{name: "empty", body: "", want: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRecord(strings.NewReader(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
