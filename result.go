package formact

import (
	"net/http"
	"strconv"
)

// Kind discriminates the outcome of a submission.
type Kind string

const (
	// KindSuccess means the handler returned normally.
	KindSuccess Kind = "success"
	// KindReject means the handler returned a RejectError.
	KindReject Kind = "reject"
	// KindRedirect means the handler returned a RedirectError.
	KindRedirect Kind = "redirect"
	// KindIgnore means the request was not a form submission. It never
	// appears on the wire.
	KindIgnore Kind = "ignore"
)

// Result[V] is the outcome of Handle, consumed by the server-side render.
//
// The fields follow the kind:
//
//	kind      Body    Error   Redirected
//	success   set     nil     false
//	reject    nil     set     false
//	redirect  nil     nil     true
//	ignore    nil     nil     false
//
// Response is non-nil only when the client negotiated a structured
// (JSON or msgpack) reply; write it with Response.Render and skip the HTML
// render. When Response is nil the caller renders the page itself, using
// InputValues and Error to re-populate the form.
//
// On the HTML path Status holds the reject or redirect status. It has not
// been sent yet, so the page can still set headers and cookies; send it
// with WriteHeader before the body, or render through StatusWriter.
type Result[V any] struct {
	Kind             Kind
	Response         *Response
	Status           int
	Body             *V
	InputValues      map[string]any
	Error            map[string]any
	Redirected       bool
	RedirectLocation string
}

// Ignored creates the result for a request that is not a form submission.
func Ignored[V any]() Result[V] {
	return Result[V]{Kind: KindIgnore, InputValues: map[string]any{}}
}

// IsSuccess reports whether the handler returned normally.
func (r Result[V]) IsSuccess() bool { return r.Kind == KindSuccess }

// IsReject reports whether the submission was rejected.
func (r Result[V]) IsReject() bool { return r.Kind == KindReject }

// IsRedirect reports whether the handler requested a redirect.
func (r Result[V]) IsRedirect() bool { return r.Kind == KindRedirect }

// IsIgnored reports whether the request was not a form submission.
func (r Result[V]) IsIgnored() bool { return r.Kind == KindIgnore }

// ErrorMessage returns Error["message"] when it is a string.
//
// Templates use it to show the reject reason next to the form.
func (r Result[V]) ErrorMessage() string {
	if msg, ok := r.Error["message"].(string); ok {
		return msg
	}
	return ""
}

// Input returns the re-population value for a scalar field, or "".
func (r Result[V]) Input(name string) string {
	if v, ok := r.InputValues[name].(string); ok {
		return v
	}
	return ""
}

// WriteHeader sends Status on w. It does nothing when there is no pending
// status, which is the case for success, ignore and structured replies.
func (r Result[V]) WriteHeader(w http.ResponseWriter) {
	if r.Response == nil && r.Status != 0 {
		w.WriteHeader(r.Status)
	}
}

// StatusWriter wraps w so that Status is sent with the first body write,
// after the page had its chance to set headers. An explicit WriteHeader
// by the page wins. Call Commit once rendering is done to send the status
// of a page that wrote nothing.
func (r Result[V]) StatusWriter(w http.ResponseWriter) *StatusWriter {
	sw := &StatusWriter{ResponseWriter: w}
	if r.Response == nil {
		sw.status = r.Status
	}
	return sw
}

// StatusWriter is an http.ResponseWriter holding back a status code until
// the body starts. See Result.StatusWriter.
type StatusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

// WriteHeader sends code unless a status was already sent.
func (sw *StatusWriter) WriteHeader(code int) {
	if sw.wrote {
		return
	}
	sw.wrote = true
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *StatusWriter) Write(b []byte) (int, error) {
	sw.Commit()
	return sw.ResponseWriter.Write(b)
}

// Commit sends the pending status if nothing was written yet.
func (sw *StatusWriter) Commit() {
	if sw.wrote {
		return
	}
	if sw.status == 0 {
		sw.wrote = true
		return
	}
	sw.WriteHeader(sw.status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *StatusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Wire projects the result onto its wire shape. Ignore results have no
// wire form and report false.
func (r Result[V]) Wire() (WireResult[V], bool) {
	switch r.Kind {
	case KindSuccess:
		return WireResult[V]{Type: KindSuccess, Body: r.Body}, true
	case KindReject:
		return WireResult[V]{Type: KindReject, Error: r.Error}, true
	case KindRedirect:
		loc := r.RedirectLocation
		return WireResult[V]{Type: KindRedirect, RedirectLocation: &loc}, true
	default:
		return WireResult[V]{}, false
	}
}

// WireResult[V] is the serializable subset of Result exchanged with
// structured clients:
//
//	{"type": "success", "body": {...}, "error": null, "redirect_location": null}
//
// Absent members are encoded as null, never omitted.
type WireResult[V any] struct {
	Type             Kind           `json:"type"`
	Body             *V             `json:"body"`
	Error            map[string]any `json:"error"`
	RedirectLocation *string        `json:"redirect_location"`
}

// Location returns the redirect target, or "" for other kinds.
func (w WireResult[V]) Location() string {
	if w.RedirectLocation == nil {
		return ""
	}
	return *w.RedirectLocation
}

// ErrorMessage returns Error["message"] when it is a string.
func (w WireResult[V]) ErrorMessage() string {
	if msg, ok := w.Error["message"].(string); ok {
		return msg
	}
	return ""
}

// Response is a fully serialized HTTP reply built for structured clients.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Render writes the response. It has the same shape as the Render method
// of templ-style response types so it can be passed wherever those are.
func (resp *Response) Render(w http.ResponseWriter, r *http.Request) error {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(resp.Body)
	return err
}
