package formact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// Form content types accepted by Handle.
const (
	ContentTypeMultipart  = "multipart/form-data"
	ContentTypeURLEncoded = "application/x-www-form-urlencoded"
)

// DefaultMaxMemory caps the size of a submitted body (32 MiB).
const DefaultMaxMemory = 32 << 20

// File is an uploaded file held in memory.
type File struct {
	Name        string // form field name
	Filename    string // client-supplied file name, may be empty
	ContentType string
	Header      textproto.MIMEHeader
	Data        []byte
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// Open returns a reader over the file contents.
func (f *File) Open() io.Reader {
	return bytes.NewReader(f.Data)
}

// Field is one entry of a submitted form. Exactly one of Value and File
// is meaningful: File is nil for scalar fields.
type Field struct {
	Name  string
	Value string
	File  *File
}

// IsFile reports whether the field is a file upload.
func (f Field) IsFile() bool {
	return f.File != nil
}

// FormData is the ordered set of fields parsed from a submission.
// Field names may repeat (checkbox groups, multi-file inputs).
type FormData struct {
	entries []Field
}

// NewFormData creates an empty FormData.
func NewFormData() *FormData {
	return &FormData{}
}

// Append adds a scalar field.
func (fd *FormData) Append(name, value string) *FormData {
	fd.entries = append(fd.entries, Field{Name: name, Value: value})
	return fd
}

// AppendFile adds a file field. The file's Name is set to name.
func (fd *FormData) AppendFile(name string, f *File) *FormData {
	f.Name = name
	fd.entries = append(fd.entries, Field{Name: name, File: f})
	return fd
}

// Get returns the first scalar value for name, or "" if there is none.
func (fd *FormData) Get(name string) string {
	for _, e := range fd.entries {
		if e.Name == name && e.File == nil {
			return e.Value
		}
	}
	return ""
}

// GetAll returns every scalar value for name in submission order.
func (fd *FormData) GetAll(name string) []string {
	var out []string
	for _, e := range fd.entries {
		if e.Name == name && e.File == nil {
			out = append(out, e.Value)
		}
	}
	return out
}

// File returns the first file for name, or nil.
func (fd *FormData) File(name string) *File {
	for _, e := range fd.entries {
		if e.Name == name && e.File != nil {
			return e.File
		}
	}
	return nil
}

// Files returns every file for name in submission order.
func (fd *FormData) Files(name string) []*File {
	var out []*File
	for _, e := range fd.entries {
		if e.Name == name && e.File != nil {
			out = append(out, e.File)
		}
	}
	return out
}

// Has reports whether any field named name was submitted.
func (fd *FormData) Has(name string) bool {
	for _, e := range fd.entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Keys returns the distinct field names in order of first appearance.
func (fd *FormData) Keys() []string {
	seen := make(map[string]struct{}, len(fd.entries))
	var keys []string
	for _, e := range fd.entries {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		keys = append(keys, e.Name)
	}
	return keys
}

// Entries returns a copy of all fields in submission order.
func (fd *FormData) Entries() []Field {
	out := make([]Field, len(fd.entries))
	copy(out, fd.entries)
	return out
}

// Len returns the number of fields.
func (fd *FormData) Len() int {
	return len(fd.entries)
}

// Values flattens the form into one value per name. When a name repeats
// the last entry wins. Scalars map to string, files to *File.
//
// This is the shape used to re-populate inputs after a rejected submission.
func (fd *FormData) Values() map[string]any {
	out := make(map[string]any, len(fd.entries))
	for _, e := range fd.entries {
		if e.File != nil {
			out[e.Name] = e.File
			continue
		}
		out[e.Name] = e.Value
	}
	return out
}

// URLValues returns the scalar fields as url.Values. Files are skipped.
func (fd *FormData) URLValues() url.Values {
	v := make(url.Values)
	for _, e := range fd.entries {
		if e.File == nil {
			v.Add(e.Name, e.Value)
		}
	}
	return v
}

// EncodeURL returns the scalar fields as an url-encoded body in
// submission order. Files are skipped.
func (fd *FormData) EncodeURL() string {
	var sb strings.Builder
	for _, e := range fd.entries {
		if e.File != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(e.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(e.Value))
	}
	return sb.String()
}

// EncodeMultipart writes the form as a multipart/form-data body and
// returns the Content-Type header value, boundary included.
func (fd *FormData) EncodeMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, e := range fd.entries {
		if e.File == nil {
			if err := mw.WriteField(e.Name, e.Value); err != nil {
				return "", err
			}
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(e.Name), escapeQuotes(e.File.Filename)))
		ct := e.File.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		pw, err := mw.CreatePart(h)
		if err != nil {
			return "", err
		}
		if _, err := pw.Write(e.File.Data); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// ParseForm reads a multipart or url-encoded request body into a FormData.
//
// Multipart parts that declare a Content-Type or a filename become files;
// every other part becomes a string field. Bodies larger than maxMemory
// bytes fail with ErrBodyTooLarge; maxMemory <= 0 selects DefaultMaxMemory.
func ParseForm(r *http.Request, maxMemory int64) (*FormData, error) {
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedContentType, err)
	}
	if r.Body == nil {
		return NewFormData(), nil
	}

	body := &io.LimitedReader{R: r.Body, N: maxMemory + 1}

	var fd *FormData
	switch mediaType {
	case ContentTypeMultipart:
		fd, err = parseMultipart(body, params["boundary"])
	case ContentTypeURLEncoded:
		fd, err = parseURLEncoded(body)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, mediaType)
	}
	if body.N <= 0 {
		return nil, ErrBodyTooLarge
	}
	if err != nil {
		return nil, err
	}
	return fd, nil
}

func parseMultipart(body io.Reader, boundary string) (*FormData, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing multipart boundary", ErrInvalidForm)
	}

	fd := NewFormData()
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return fd, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}

		filename := part.FileName()
		contentType := part.Header.Get("Content-Type")
		if filename == "" && contentType == "" {
			fd.Append(name, string(data))
			continue
		}
		fd.AppendFile(name, &File{
			Filename:    filename,
			ContentType: contentType,
			Header:      part.Header,
			Data:        data,
		})
	}
}

// parseURLEncoded mirrors url.ParseQuery but keeps submission order.
func parseURLEncoded(body io.Reader) (*FormData, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}

	fd := NewFormData()
	query := strings.TrimSpace(string(raw))
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if strings.Contains(pair, ";") {
			return nil, fmt.Errorf("%w: invalid semicolon separator in query", ErrInvalidForm)
		}
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err = url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
		fd.Append(key, value)
	}
	return fd, nil
}
