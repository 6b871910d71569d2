package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
	"github.com/myrjola/survey/internal/sink"
	"github.com/myrjola/survey/internal/survey"
)

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.NewSentinel("empty request body")

// decodeRecord reads a flat JSON object. Non-string values are stored in their JSON text form.
func decodeRecord(body io.Reader) (map[string]string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errEmptyBody
	}
	var fields map[string]any
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}
	if fields == nil {
		return nil, errors.New("record is not a JSON object")
	}
	values := make(map[string]string, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case nil:
			values[k] = ""
		case string:
			values[k] = t
		case float64:
			values[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			values[k] = strconv.FormatBool(t)
		default:
			values[k] = fmt.Sprint(t)
		}
	}
	return values, nil
}

// exec appends the posted record and sends the confirmation e-mail. The outcome is always an [sink.Envelope].
func (app *application) exec(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values, err := decodeRecord(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "rejected record", errors.SlogError(err))
		app.writeEnvelope(w, r, sink.Envelope{Result: sink.ResultError, Error: err.Error(), Reference: ""})
		return
	}

	if values[survey.TimestampKey] == "" {
		values[survey.TimestampKey] = survey.FormatTimestamp(app.now(), app.location)
	}

	resp, err := app.responses.Append(ctx, values)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "store record", errors.SlogError(err))
		app.writeEnvelope(w, r, sink.Envelope{Result: sink.ResultError, Error: "could not store response",
			Reference: ""})
		return
	}
	ctx = logging.WithAttrs(ctx, slog.String("reference", resp.Reference))

	// The row stays stored when the confirmation fails.
	if err = app.notifier.Notify(ctx, values, resp.Reference); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "notify", errors.SlogError(err))
		app.writeEnvelope(w, r, sink.Envelope{Result: sink.ResultError, Error: "could not send confirmation e-mail",
			Reference: resp.Reference})
		return
	}

	app.writeEnvelope(w, r, sink.Envelope{Result: sink.ResultSuccess, Error: "", Reference: resp.Reference})
}

func (app *application) writeEnvelope(w http.ResponseWriter, r *http.Request, env sink.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(env); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "encode envelope", errors.SlogError(err))
	}
}
