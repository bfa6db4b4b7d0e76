package formact

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"

	"github.com/pthm/formact/lib/encoding"
)

// TestResult holds the outcome of a simulated submission.
//
// Result and Err are what Handle returned. StatusCode, Headers and Body
// are what reached the ResponseWriter, after writing Result.Response when
// the client negotiated a structured reply, or the pending Result.Status
// otherwise. Wire is the decoded structured
// reply, or nil on the HTML path.
type TestResult[V any] struct {
	Result     Result[V]
	Err        error
	StatusCode int
	Headers    http.Header
	Body       []byte
	Wire       *WireResult[V]
}

// TestSubmit runs req through Handle against a recorder.
//
//	req := formact.NewTestRequest(http.MethodPost, "/login").
//	    WithField("username", "ada").
//	    AcceptJSON().
//	    Build()
//	tr := formact.TestSubmit(req, handleLogin)
//	if !tr.HasStatus(http.StatusUnprocessableEntity) { ... }
func TestSubmit[V any](req *http.Request, h HandlerFunc[V], opts ...Option) *TestResult[V] {
	rec := httptest.NewRecorder()
	res, err := Handle(rec, req, h, opts...)

	tr := &TestResult[V]{Result: res, Err: err}
	if err == nil {
		if res.Response != nil {
			if rerr := res.Response.Render(rec, req); rerr != nil {
				tr.Err = rerr
			}
		} else {
			res.WriteHeader(rec)
		}
	}
	tr.StatusCode = rec.Code
	tr.Headers = rec.Header()
	tr.Body = rec.Body.Bytes()

	if res.Response != nil {
		if codec, cerr := encoding.ForContentType(rec.Header().Get("Content-Type")); cerr == nil {
			var wire WireResult[V]
			if derr := codec.Unmarshal(tr.Body, &wire); derr == nil {
				tr.Wire = &wire
			}
		}
	}
	return tr
}

// HasStatus checks if the recorded status code matches.
func (r *TestResult[V]) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult[V]) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// RedirectedTo checks if the submission redirected to url, on either the
// HTML path (Location header) or the structured path (redirect_location).
func (r *TestResult[V]) RedirectedTo(url string) bool {
	if !r.Result.IsRedirect() {
		return false
	}
	if r.Wire != nil {
		return r.Wire.Location() == url
	}
	return r.Headers.Get("Location") == url
}

// BodyContains checks if the recorded body contains a substring.
func (r *TestResult[V]) BodyContains(substr string) bool {
	return bytes.Contains(r.Body, []byte(substr))
}

type testField struct {
	name        string
	value       string
	filename    string
	contentType string
	data        []byte
	isFile      bool
}

// TestRequestBuilder provides a fluent interface for building form
// submissions in tests.
//
//	req := formact.NewTestRequest(http.MethodPost, "/upload").
//	    WithField("title", "Report").
//	    WithFile("doc", "report.pdf", "application/pdf", pdf).
//	    AcceptJSON().
//	    Build()
//
// Bodies are url-encoded unless Multipart is called or a file is added.
type TestRequestBuilder struct {
	method    string
	url       string
	fields    []testField
	headers   map[string]string
	ctx       context.Context
	multipart bool
	noBody    bool
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:  method,
		url:     url,
		headers: make(map[string]string),
		ctx:     context.Background(),
	}
}

// WithField adds a scalar field.
func (b *TestRequestBuilder) WithField(name, value string) *TestRequestBuilder {
	b.fields = append(b.fields, testField{name: name, value: value})
	return b
}

// WithFields adds several scalar fields in key order of the map iteration.
// Use WithField when order matters.
func (b *TestRequestBuilder) WithFields(data map[string]string) *TestRequestBuilder {
	for k, v := range data {
		b.WithField(k, v)
	}
	return b
}

// WithFile adds a file part and switches the body to multipart.
func (b *TestRequestBuilder) WithFile(name, filename, contentType string, data []byte) *TestRequestBuilder {
	b.fields = append(b.fields, testField{
		name:        name,
		filename:    filename,
		contentType: contentType,
		data:        data,
		isFile:      true,
	})
	b.multipart = true
	return b
}

// Multipart encodes the body as multipart/form-data.
func (b *TestRequestBuilder) Multipart() *TestRequestBuilder {
	b.multipart = true
	return b
}

// URLEncoded encodes the body as application/x-www-form-urlencoded.
// Files are dropped.
func (b *TestRequestBuilder) URLEncoded() *TestRequestBuilder {
	b.multipart = false
	return b
}

// WithoutBody sends no body and no Content-Type header.
func (b *TestRequestBuilder) WithoutBody() *TestRequestBuilder {
	b.noBody = true
	return b
}

// AcceptJSON asks for a JSON wire result.
func (b *TestRequestBuilder) AcceptJSON() *TestRequestBuilder {
	return b.WithHeader("Accept", encoding.MediaTypeJSON)
}

// AcceptMsgpack asks for a msgpack wire result.
func (b *TestRequestBuilder) AcceptMsgpack() *TestRequestBuilder {
	return b.WithHeader("Accept", encoding.MediaTypeMsgpack)
}

// WithHeader adds a header to the request. Setting Content-Type
// overrides the one derived from the body encoding.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Build creates the request.
func (b *TestRequestBuilder) Build() *http.Request {
	var (
		body        *bytes.Buffer
		contentType string
	)
	switch {
	case b.noBody:
		body = &bytes.Buffer{}
	case b.multipart:
		body, contentType = b.multipartBody()
	default:
		form := url.Values{}
		for _, f := range b.fields {
			if !f.isFile {
				form.Add(f.name, f.value)
			}
		}
		body = bytes.NewBufferString(form.Encode())
		contentType = ContentTypeURLEncoded
	}

	req := httptest.NewRequest(b.method, b.url, body)
	req = req.WithContext(b.ctx)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req
}

func (b *TestRequestBuilder) multipartBody() (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range b.fields {
		if err := writeTestPart(mw, f); err != nil {
			panic(fmt.Sprintf("formact: building multipart body: %v", err))
		}
	}
	if err := mw.Close(); err != nil {
		panic(fmt.Sprintf("formact: building multipart body: %v", err))
	}
	return &buf, mw.FormDataContentType()
}

func writeTestPart(mw *multipart.Writer, f testField) error {
	if !f.isFile {
		return mw.WriteField(f.name, f.value)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(f.name), escapeQuotes(f.filename)))
	if f.contentType != "" {
		h.Set("Content-Type", f.contentType)
	}
	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = w.Write(f.data)
	return err
}
