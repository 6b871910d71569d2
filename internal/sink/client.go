// Package sink posts finished answer records to the external collection endpoint.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/survey"
)

// Mode selects how much of the response is trusted.
type Mode string

const (
	// ModeOpaque dispatches the request and ignores the response. Only transport errors fail.
	ModeOpaque Mode = "opaque"
	// ModeInspect fails on non-2xx responses and on envelopes not reporting success.
	ModeInspect Mode = "inspect"
)

// Result values of an [Envelope].
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Envelope is the JSON body returned by the sink.
type Envelope struct {
	Result    string `json:"result"`
	Error     string `json:"error,omitempty"`
	Reference string `json:"reference,omitempty"`
}

var (
	// ErrRejected is returned in inspect mode when the sink answers with an error.
	ErrRejected = errors.NewSentinel("submission rejected")
	// ErrUnknownMode is returned for an unsupported mode.
	ErrUnknownMode = errors.NewSentinel("unknown sink mode")
)

// maxResponseBytes bounds how much of the response body is read.
const maxResponseBytes = 64 << 10

// Client is an HTTP [survey.Sink].
type Client struct {
	url    string
	mode   Mode
	client *http.Client
}

// New creates a client posting to url. A nil httpClient uses [http.DefaultClient].
func New(url string, mode Mode, httpClient *http.Client) (*Client, error) {
	switch mode {
	case ModeOpaque, ModeInspect:
	case "":
		mode = ModeOpaque
	default:
		return nil, errors.Wrap(ErrUnknownMode, "new sink client", slog.String("mode", string(mode)))
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, mode: mode, client: httpClient}, nil
}

// Send posts record as a flat JSON object.
func (c *Client) Send(ctx context.Context, record survey.AnswerRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post record", slog.String("url", c.url))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if c.mode == ModeOpaque {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	return inspect(resp)
}

func inspect(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrap(ErrRejected, "unexpected status", slog.Int("status", resp.StatusCode))
	}
	var env Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return errors.Wrap(err, "decode envelope")
	}
	if env.Result != ResultSuccess {
		return errors.Wrap(ErrRejected, "sink reported failure",
			slog.String("result", env.Result), slog.String("sink_error", env.Error))
	}
	return nil
}
