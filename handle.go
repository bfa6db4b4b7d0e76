package formact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pthm/formact/lib/encoding"
)

// HandlerFunc processes a parsed form submission.
//
// Return normally for success. Return Reject(...) or Redirect(...) to
// report a reject or redirect outcome; any other error is not recovered
// and propagates out of Handle.
type HandlerFunc[V any] func(ctx context.Context, form *FormData) (V, error)

// Option configures Handle and NewHandler.
type Option func(*options)

type options struct {
	maxMemory int64
	logger    *slog.Logger
	codecs    []encoding.Codec
}

// WithMaxMemory caps the accepted body size in bytes.
func WithMaxMemory(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxMemory = n
		}
	}
}

// WithLogger sets the logger used for per-submission debug records.
// Nil loggers are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCodecs restricts the structured formats offered to clients, in
// preference order. By default JSON and msgpack are both offered.
func WithCodecs(codecs ...encoding.Codec) Option {
	return func(o *options) {
		if len(codecs) > 0 {
			o.codecs = codecs
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		maxMemory: DefaultMaxMemory,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		codecs:    encoding.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle runs a form submission through h and normalizes the outcome.
//
// Requests that are not a POST with a multipart or url-encoded body are
// ignored: the result kind is KindIgnore and h is not called.
//
// When the client accepts JSON or msgpack, Result.Response holds the
// serialized reply and w is left untouched. Otherwise redirects set the
// Location header on w, and reject and redirect statuses are left pending
// in Result.Status so the caller can still set headers while rendering
// HTML. Send the status with Result.WriteHeader or Result.StatusWriter;
// Handler does both for you.
//
// Errors from h other than reject and redirect signals are returned as is,
// with a zero Result.
func Handle[V any](w http.ResponseWriter, r *http.Request, h HandlerFunc[V], opts ...Option) (Result[V], error) {
	if h == nil {
		return Result[V]{}, ErrNilHandler
	}
	o := newOptions(opts)
	log := o.logger.With(slog.String("method", r.Method), slog.String("path", r.URL.Path))

	if !IsFormRequest(r) {
		log.Debug("form submission ignored", slog.String("content_type", r.Header.Get("Content-Type")))
		return Ignored[V](), nil
	}

	form, err := ParseForm(r, o.maxMemory)
	if err != nil {
		return Result[V]{}, err
	}
	inputValues := form.Values()
	codec, structured := encoding.Negotiate(acceptHeader(r), o.codecs...)

	body, err := h(r.Context(), form)
	if err == nil {
		res := Result[V]{Kind: KindSuccess, Body: &body, InputValues: inputValues}
		if structured {
			if res.Response, err = buildResponse(codec, http.StatusOK, res); err != nil {
				return Result[V]{}, err
			}
		}
		log.Debug("form submission succeeded", slog.Bool("structured", structured))
		return res, nil
	}

	if rej, ok := AsReject(err); ok {
		status := rej.StatusCode()
		res := Result[V]{Kind: KindReject, InputValues: inputValues, Error: rej.Data}
		if structured {
			if res.Response, err = buildResponse(codec, status, res); err != nil {
				return Result[V]{}, err
			}
		} else {
			res.Status = status
		}
		log.Debug("form submission rejected", slog.Int("status", status), slog.Bool("structured", structured))
		return res, nil
	}

	if red, ok := AsRedirect(err); ok {
		res := Result[V]{
			Kind:             KindRedirect,
			InputValues:      inputValues,
			Redirected:       true,
			RedirectLocation: red.Location,
		}
		status := red.StatusCode()
		if structured {
			if res.Response, err = buildResponse(codec, status, res); err != nil {
				return Result[V]{}, err
			}
		} else {
			w.Header().Set("Location", red.Location)
			res.Status = status
		}
		log.Debug("form submission redirected",
			slog.Int("status", status),
			slog.String("location", red.Location),
			slog.Bool("structured", structured))
		return res, nil
	}

	return Result[V]{}, err
}

func buildResponse[V any](codec encoding.Codec, status int, res Result[V]) (*Response, error) {
	wire, _ := res.Wire()
	data, err := codec.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("formact: encoding %s result: %w", res.Kind, err)
	}
	header := make(http.Header)
	header.Set("Content-Type", codec.ContentType())
	return &Response{Status: status, Header: header, Body: data}, nil
}

// RenderFunc renders the HTML page for a submission that did not
// negotiate a structured reply. It also runs for ignored requests, which
// is how the initial GET of a page is served.
type RenderFunc[V any] func(w http.ResponseWriter, r *http.Request, res Result[V]) error

// Handler serves a page with a form through Handle.
//
//	login := formact.NewHandler(handleLogin, renderLogin)
//	mux.Handle("/login", login)
//
// Structured replies are written as is. Redirects on the HTML path stop
// after the status and Location header. Everything else is passed to the
// render function, with a reject status sent when the page starts writing.
type Handler[V any] struct {
	handle HandlerFunc[V]
	render RenderFunc[V]
	opts   []Option
	logger *slog.Logger

	// OnError is called when the handler, parsing, or rendering fails.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// NewHandler creates an http.Handler from a submission handler and a
// render function.
func NewHandler[V any](h HandlerFunc[V], render RenderFunc[V], opts ...Option) *Handler[V] {
	return &Handler[V]{
		handle:  h,
		render:  render,
		opts:    opts,
		logger:  newOptions(opts).logger,
		OnError: DefaultErrorHandler,
	}
}

// ServeHTTP implements http.Handler.
func (hd *Handler[V]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := Handle(w, r, hd.handle, hd.opts...)
	if err != nil {
		hd.OnError(w, r, err)
		return
	}

	if res.Response != nil {
		if err := res.Response.Render(w, r); err != nil {
			hd.logger.Error("writing form response", slog.Any("err", err))
		}
		return
	}
	if res.IsRedirect() || hd.render == nil {
		res.WriteHeader(w)
		return
	}
	sw := res.StatusWriter(w)
	if err := hd.render(sw, r, res); err != nil {
		hd.OnError(sw, r, err)
		return
	}
	sw.Commit()
}

// DefaultErrorHandler maps parse failures to 4xx responses and
// everything else to 500.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		http.Error(w, "Request entity too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrUnsupportedContentType):
		http.Error(w, "Unsupported media type", http.StatusUnsupportedMediaType)
	case errors.Is(err, ErrInvalidForm):
		http.Error(w, "Bad request", http.StatusBadRequest)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
