package formactecho

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/formact"
)

type login struct {
	User string `json:"user"`
}

func handleLogin(ctx context.Context, form *formact.FormData) (login, error) {
	switch form.Get("password") {
	case "secret":
		return login{User: form.Get("username")}, nil
	case "home":
		return login{}, formact.SeeOther("/home")
	}
	return login{}, formact.RejectWithMessage(http.StatusUnprocessableEntity, "bad")
}

func renderLogin(c echo.Context, res formact.Result[login]) error {
	return Render(c, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<form>"+res.ErrorMessage()+"</form>")
		return err
	}))
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Any("/login", Wrap(handleLogin, renderLogin))
	return e
}

func postForm(e *echo.Echo, password, accept string) *httptest.ResponseRecorder {
	body := url.Values{"username": {"ada"}, "password": {password}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", formact.ContentTypeURLEncoded)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWrapRendersOnGET(t *testing.T) {
	e := newEcho()

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "<form></form>" {
		t.Errorf("body = %q, want empty form", rec.Body.String())
	}
}

func TestWrapRejectHTML(t *testing.T) {
	rec := postForm(newEcho(), "wrong", "text/html")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "bad") {
		t.Errorf("body = %q, want error message", rec.Body.String())
	}
}

func TestWrapRejectJSON(t *testing.T) {
	rec := postForm(newEcho(), "wrong", "application/json")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	var wire formact.WireResult[login]
	if err := json.Unmarshal(rec.Body.Bytes(), &wire); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if wire.Type != formact.KindReject || wire.ErrorMessage() != "bad" {
		t.Errorf("wire = %+v, want reject with message bad", wire)
	}
}

func TestWrapRedirectHTML(t *testing.T) {
	rec := postForm(newEcho(), "home", "")

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/home" {
		t.Errorf("Location = %q, want /home", loc)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestHandleSuccess(t *testing.T) {
	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		res, err := Handle(c, handleLogin)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, "welcome "+res.Body.User)
	})

	rec := postForm(e, "secret", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "welcome ada" {
		t.Errorf("got %d %q, want 200 %q", rec.Code, rec.Body.String(), "welcome ada")
	}
}

func TestHandleParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		opts []formact.Option
		want int
	}{
		{"too large", "a=" + strings.Repeat("x", 64), []formact.Option{formact.WithMaxMemory(8)}, http.StatusRequestEntityTooLarge},
		{"malformed", "a=%zz", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.POST("/", Wrap(handleLogin, renderLogin, tt.opts...))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", formact.ContentTypeURLEncoded)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	component := templ.Raw("<p>hi</p>")
	if err := Render(c, component); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.String() != "<p>hi</p>" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestWrapRejectKeepsRenderHeaders(t *testing.T) {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Frame-Options", "DENY")
			return next(c)
		}
	})
	e.POST("/login", Wrap(handleLogin, func(c echo.Context, res formact.Result[login]) error {
		c.SetCookie(&http.Cookie{Name: "attempts", Value: "1"})
		c.Response().Header().Set("Cache-Control", "no-store")
		return renderLogin(c, res)
	}))

	got := postForm(e, "wrong", "").Result()

	if got.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", got.StatusCode, http.StatusUnprocessableEntity)
	}
	for header, want := range map[string]string{
		"X-Frame-Options": "DENY",
		"Set-Cookie":      "attempts=1",
		"Cache-Control":   "no-store",
		"Content-Type":    "text/html; charset=utf-8",
	} {
		if v := got.Header.Get(header); v != want {
			t.Errorf("%s = %q, want %q", header, v, want)
		}
	}
}

func TestHandleRedirectStatusPending(t *testing.T) {
	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		res, err := Handle(c, handleLogin)
		if err != nil {
			return err
		}
		c.SetCookie(&http.Cookie{Name: "session", Value: "ada"})
		return c.NoContent(res.Status)
	})

	got := postForm(e, "home", "").Result()

	if got.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", got.StatusCode, http.StatusSeeOther)
	}
	if got.Header.Get("Location") != "/home" || got.Header.Get("Set-Cookie") != "session=ada" {
		t.Errorf("headers = %v, want Location and session cookie", got.Header)
	}
}
