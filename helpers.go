package formact

import (
	"mime"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/formact/lib/encoding"
)

// Render writes a templ component to the HTTP response.
//
// Sets Content-Type to text/html and renders the component using the
// request's context. Typical use is the render half of a form page:
//
//	func renderLogin(w http.ResponseWriter, r *http.Request, res formact.Result[Login]) error {
//	    return formact.Render(w, r, LoginPage(res.ErrorMessage(), res.InputValues))
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// IsMultipart returns true if the request body is multipart/form-data.
func IsMultipart(r *http.Request) bool {
	return mediaType(r) == ContentTypeMultipart
}

// IsURLEncoded returns true if the request body is
// application/x-www-form-urlencoded.
func IsURLEncoded(r *http.Request) bool {
	return mediaType(r) == ContentTypeURLEncoded
}

// IsFormRequest returns true for a POST carrying a form body. Handle
// ignores every other request.
func IsFormRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return IsMultipart(r) || IsURLEncoded(r)
}

func acceptHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Accept"), ", ")
}

// Negotiate returns the structured codec the client asked for, if any.
//
// Only explicit media types count: a browser navigation sending
// "text/html,*/*" gets false and is served the HTML render path.
func Negotiate(r *http.Request, codecs ...encoding.Codec) (encoding.Codec, bool) {
	return encoding.Negotiate(acceptHeader(r), codecs...)
}

// WantsJSON returns true if the client explicitly accepts application/json.
func WantsJSON(r *http.Request) bool {
	_, ok := encoding.Negotiate(acceptHeader(r), encoding.JSON)
	return ok
}

// WantsStructured returns true if the client accepts any structured
// result format (JSON or msgpack).
func WantsStructured(r *http.Request) bool {
	_, ok := Negotiate(r)
	return ok
}
