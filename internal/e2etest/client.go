package e2etest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/survey/internal/errors"
)

// Client is a cookie-aware HTTP client that submits forms the way a browser without JavaScript does.
type Client struct {
	client *http.Client
	url    string
}

func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client: &http.Client{Jar: jar}, //nolint:exhaustruct // defaults.
		url:    url,
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		req, err := c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil)
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		if resp, doErr := c.client.Do(req); doErr == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	req, err := c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request with context")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// GetDoc fetches a URL and returns a goquery document.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return nil, errors.Wrap(err, "client get")
	}
	return readDoc(resp)
}

// SubmitForm submits the form matched by formSelector in doc by pressing the button matched by buttonSelector.
//
// The form data is collected like a browser does: hidden and text inputs, textareas and checked radio buttons outside
// disabled fieldsets.
// Entries of values override or add fields. The button's formaction takes precedence over the form action and its
// name/value pair is included.
func (c *Client) SubmitForm(
	ctx context.Context,
	doc *goquery.Document,
	formSelector string,
	buttonSelector string,
	values map[string]string,
) (*goquery.Document, error) {
	form := doc.Find(formSelector).First()
	if form.Length() == 0 {
		return nil, errors.New("form not found", slog.String("selector", formSelector))
	}
	button := form.Find(buttonSelector).First()
	if button.Length() == 0 {
		return nil, errors.New("button not found", slog.String("selector", buttonSelector))
	}

	action, _ := form.Attr("action")
	if formAction, ok := button.Attr("formaction"); ok {
		action = formAction
	}
	if action == "" {
		return nil, errors.New("form has no action", slog.String("selector", formSelector))
	}

	formData := FormValues(form)
	if name, ok := button.Attr("name"); ok {
		value, _ := button.Attr("value")
		formData.Set(name, value)
	}
	for k, v := range values {
		formData.Set(k, v)
	}
	return c.PostForm(ctx, action, formData)
}

// Post posts url-encoded form data and returns the raw response. The caller closes the body.
func (c *Client) Post(ctx context.Context, urlPath string, formData neturl.Values) (*http.Response, error) {
	req, err := c.newRequestWithContext(ctx, http.MethodPost, urlPath, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "new request with context")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// PostForm posts url-encoded form data and returns the response document.
func (c *Client) PostForm(ctx context.Context, urlPath string, formData neturl.Values) (*goquery.Document, error) {
	resp, err := c.Post(ctx, urlPath, formData)
	if err != nil {
		return nil, errors.Wrap(err, "post")
	}
	return readDoc(resp)
}

// FormValues returns the values a browser would submit for form.
func FormValues(form *goquery.Selection) neturl.Values {
	formData := neturl.Values{}
	form.Find("input[name], textarea[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		if s.ParentsFiltered("fieldset[disabled]").Length() > 0 {
			return
		}
		if goquery.NodeName(s) == "textarea" {
			formData.Add(name, s.Text())
			return
		}
		typ, _ := s.Attr("type")
		value, _ := s.Attr("value")
		switch typ {
		case "radio", "checkbox":
			if _, checked := s.Attr("checked"); checked {
				formData.Add(name, value)
			}
		case "submit", "button":
		default:
			formData.Add(name, value)
		}
	})
	return formData
}

// CSRFToken returns the CSRF token embedded in the first form of doc.
func CSRFToken(doc *goquery.Document) (string, error) {
	token, ok := doc.Find("form input[name=csrf_token]").First().Attr("value")
	if !ok {
		return "", errors.New("csrf_token not found in form")
	}
	return token, nil
}

func readDoc(resp *http.Response) (*goquery.Document, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	if http.StatusOK != resp.StatusCode {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10)) //nolint:mnd // enough for the error page.
		return nil, errors.New("unexpected status code", slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "create document from reader")
	}
	return doc, nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req, nil
}
