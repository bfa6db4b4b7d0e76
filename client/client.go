// Package client submits HTML-style forms to formact handlers from Go.
//
// Submit plays the part of the browser-side submit helper: it sends the form
// to its action with the form's method, asks for a structured result,
// decodes it, and follows redirect results through a callback.
//
//	form := client.Form{
//	    Action: "https://example.com/login",
//	    Method: http.MethodPost,
//	    Data: formact.NewFormData().
//	        Append("username", "ada").
//	        Append("password", "secret"),
//	}
//	res, err := client.Submit[LoginResult](ctx, form,
//	    client.WithRedirectHandler(func(ctx context.Context, location string) error {
//	        fmt.Println("redirecting to", location)
//	        return nil
//	    }))
//	if err != nil {
//	    return err
//	}
//	if msg := res.ErrorMessage(); msg != "" {
//	    fmt.Println(msg)
//	}
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pthm/formact"
	"github.com/pthm/formact/lib/encoding"
)

// Errors returned by Submit.
var (
	ErrMissingAction      = errors.New("client: form has no action")
	ErrUnexpectedResponse = errors.New("client: unexpected response")
)

// Form is the data of a form element: where it submits, how, and what.
type Form struct {
	// Action is the absolute URL the form submits to.
	Action string
	// Method defaults to GET, as for HTML forms.
	Method string
	// Enctype selects the body encoding for non-GET submissions. The
	// default is multipart/form-data, the encoding browsers use when
	// submitting through fetch.
	Enctype string
	Data    *formact.FormData
}

// RedirectFunc is invoked with the redirect_location of a redirect result.
type RedirectFunc func(ctx context.Context, location string) error

// Option configures Submit.
type Option func(*options)

type options struct {
	httpClient *http.Client
	redirect   RedirectFunc
	logger     *slog.Logger
	header     http.Header
	codec      encoding.Codec
}

// WithHTTPClient sets the HTTP client. Defaults to http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithRedirectHandler replaces the default redirect behavior, which is
// to navigate to the location with a GET (see Navigate).
func WithRedirectHandler(fn RedirectFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.redirect = fn
		}
	}
}

// WithLogger sets the logger that records each decoded result.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHeader adds a request header, such as a CSRF token or cookie.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.header.Add(key, value)
	}
}

// WithMsgpack asks the server for a msgpack result instead of JSON.
func WithMsgpack() Option {
	return func(o *options) {
		o.codec = encoding.Msgpack
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		header:     make(http.Header),
		codec:      encoding.JSON,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit sends form and returns the decoded result.
//
// On a redirect result the redirect handler is called exactly once with
// the exact redirect_location; for any other result it is not called.
// A response that is not a structured result, whatever its status,
// fails with ErrUnexpectedResponse.
func Submit[V any](ctx context.Context, form Form, opts ...Option) (formact.WireResult[V], error) {
	var zero formact.WireResult[V]
	o := newOptions(opts)

	action, err := url.Parse(form.Action)
	if err != nil {
		return zero, fmt.Errorf("client: parsing action: %w", err)
	}
	if form.Action == "" {
		return zero, ErrMissingAction
	}

	req, err := newRequest(ctx, form, action, o)
	if err != nil {
		return zero, err
	}

	// Redirect results are reported in the body. Never let the transport
	// chase a 3xx on its own.
	hc := *o.httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := hc.Do(req)
	if err != nil {
		return zero, fmt.Errorf("client: submitting form: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("client: reading response: %w", err)
	}

	codec, err := encoding.ForContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		return zero, fmt.Errorf("%w: status %d with content type %q",
			ErrUnexpectedResponse, resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	var res formact.WireResult[V]
	if err := codec.Unmarshal(data, &res); err != nil {
		return zero, fmt.Errorf("%w: decoding result: %v", ErrUnexpectedResponse, err)
	}
	switch res.Type {
	case formact.KindSuccess, formact.KindReject, formact.KindRedirect:
	default:
		return zero, fmt.Errorf("%w: result type %q", ErrUnexpectedResponse, res.Type)
	}

	o.logger.Debug("form result",
		slog.String("action", action.String()),
		slog.Int("status", resp.StatusCode),
		slog.String("type", string(res.Type)),
		slog.Any("body", res.Body),
		slog.Any("error", res.Error),
		slog.String("redirect_location", res.Location()))

	if res.Type == formact.KindRedirect {
		redirect := o.redirect
		if redirect == nil {
			redirect = Navigate(o.httpClient, action)
		}
		if err := redirect(ctx, res.Location()); err != nil {
			return res, fmt.Errorf("client: following redirect: %w", err)
		}
	}
	return res, nil
}

func newRequest(ctx context.Context, form Form, action *url.URL, o *options) (*http.Request, error) {
	method := strings.ToUpper(form.Method)
	if method == "" {
		method = http.MethodGet
	}
	data := form.Data
	if data == nil {
		data = formact.NewFormData()
	}

	var (
		body        io.Reader
		contentType string
	)
	target := *action
	switch {
	case method == http.MethodGet:
		target.RawQuery = data.EncodeURL()
	case strings.EqualFold(form.Enctype, formact.ContentTypeURLEncoded):
		body = strings.NewReader(data.EncodeURL())
		contentType = formact.ContentTypeURLEncoded
	default:
		var buf bytes.Buffer
		ct, err := data.EncodeMultipart(&buf)
		if err != nil {
			return nil, fmt.Errorf("client: encoding form: %w", err)
		}
		body = &buf
		contentType = ct
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}
	for k, vs := range o.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", o.codec.ContentType())
	return req, nil
}

// Navigate returns the default redirect handler: it resolves location
// against base and loads it with a GET through c, the way a browser
// navigates. The page body is discarded.
func Navigate(c *http.Client, base *url.URL) RedirectFunc {
	if c == nil {
		c = http.DefaultClient
	}
	return func(ctx context.Context, location string) error {
		ref, err := url.Parse(location)
		if err != nil {
			return fmt.Errorf("client: parsing redirect location: %w", err)
		}
		target := ref
		if base != nil {
			target = base.ResolveReference(ref)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return err
		}
		resp, err := c.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
}
