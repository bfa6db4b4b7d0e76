package client_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/formact"
	"github.com/pthm/formact/client"
)

type loginResult struct {
	User string `json:"user"`
}

func handleLogin(ctx context.Context, form *formact.FormData) (loginResult, error) {
	switch form.Get("password") {
	case "secret":
		return loginResult{User: form.Get("username")}, nil
	case "go-home":
		return loginResult{}, formact.Redirect(http.StatusFound, "/home?from=login#top")
	default:
		return loginResult{}, formact.RejectWithMessage(http.StatusUnprocessableEntity, "Invalid username or password")
	}
}

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var homeHits atomic.Int32

	mux := http.NewServeMux()
	mux.Handle("/login", formact.NewHandler(handleLogin, func(w http.ResponseWriter, r *http.Request, res formact.Result[loginResult]) error {
		_, err := w.Write([]byte("<html>login</html>"))
		return err
	}))
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		homeHits.Add(1)
		w.Write([]byte("<html>home</html>"))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query().Get("q")
		w.Write([]byte(`{"type":"success","body":{"user":"` + q + `"},"error":null,"redirect_location":null}`))
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &homeHits
}

func loginForm(srv *httptest.Server, password string) client.Form {
	return client.Form{
		Action: srv.URL + "/login",
		Method: "post",
		Data: formact.NewFormData().
			Append("username", "ada").
			Append("password", password),
	}
}

func TestSubmitSuccess(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	var calls int
	res, err := client.Submit[loginResult](context.Background(), loginForm(srv, "secret"),
		client.WithHTTPClient(srv.Client()),
		client.WithRedirectHandler(func(ctx context.Context, location string) error {
			calls++
			return nil
		}))

	require.NoError(t, err)
	assert.Equal(t, formact.KindSuccess, res.Type)
	require.NotNil(t, res.Body)
	assert.Equal(t, "ada", res.Body.User)
	assert.Nil(t, res.Error)
	assert.Nil(t, res.RedirectLocation)
	assert.Zero(t, calls, "redirect handler must not run for success")
}

func TestSubmitReject(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	var calls int
	res, err := client.Submit[loginResult](context.Background(), loginForm(srv, "wrong"),
		client.WithHTTPClient(srv.Client()),
		client.WithRedirectHandler(func(ctx context.Context, location string) error {
			calls++
			return nil
		}))

	require.NoError(t, err)
	assert.Equal(t, formact.KindReject, res.Type)
	assert.Nil(t, res.Body)
	assert.Equal(t, "Invalid username or password", res.ErrorMessage())
	assert.Zero(t, calls)
}

func TestSubmitRedirectInvokesHandlerOnce(t *testing.T) {
	t.Parallel()
	srv, homeHits := newServer(t)

	var locations []string
	res, err := client.Submit[loginResult](context.Background(), loginForm(srv, "go-home"),
		client.WithHTTPClient(srv.Client()),
		client.WithRedirectHandler(func(ctx context.Context, location string) error {
			locations = append(locations, location)
			return nil
		}))

	require.NoError(t, err)
	assert.Equal(t, formact.KindRedirect, res.Type)
	assert.Equal(t, []string{"/home?from=login#top"}, locations)
	assert.Zero(t, homeHits.Load(), "custom handler replaces navigation")
}

func TestSubmitRedirectDefaultNavigates(t *testing.T) {
	t.Parallel()
	srv, homeHits := newServer(t)

	res, err := client.Submit[loginResult](context.Background(), loginForm(srv, "go-home"),
		client.WithHTTPClient(srv.Client()))

	require.NoError(t, err)
	assert.Equal(t, "/home?from=login#top", res.Location())
	assert.Equal(t, int32(1), homeHits.Load())
}

func TestSubmitRedirectHandlerError(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	boom := errors.New("navigation blocked")
	res, err := client.Submit[loginResult](context.Background(), loginForm(srv, "go-home"),
		client.WithHTTPClient(srv.Client()),
		client.WithRedirectHandler(func(ctx context.Context, location string) error {
			return boom
		}))

	require.ErrorIs(t, err, boom)
	assert.Equal(t, formact.KindRedirect, res.Type, "result is returned alongside the error")
}

func TestSubmitMsgpack(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	res, err := client.Submit[loginResult](context.Background(), loginForm(srv, "secret"),
		client.WithHTTPClient(srv.Client()),
		client.WithMsgpack())

	require.NoError(t, err)
	require.NotNil(t, res.Body)
	assert.Equal(t, "ada", res.Body.User)
}

func TestSubmitURLEncoded(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	form := loginForm(srv, "secret")
	form.Enctype = formact.ContentTypeURLEncoded

	res, err := client.Submit[loginResult](context.Background(), form, client.WithHTTPClient(srv.Client()))

	require.NoError(t, err)
	assert.Equal(t, formact.KindSuccess, res.Type)
}

func TestSubmitGETEncodesQuery(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	form := client.Form{
		Action: srv.URL + "/search",
		Data:   formact.NewFormData().Append("q", "grace"),
	}
	res, err := client.Submit[loginResult](context.Background(), form, client.WithHTTPClient(srv.Client()))

	require.NoError(t, err)
	require.NotNil(t, res.Body)
	assert.Equal(t, "grace", res.Body.User)
}

func TestSubmitUnexpectedResponse(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t)

	form := client.Form{Action: srv.URL + "/html", Method: http.MethodPost, Data: formact.NewFormData()}
	_, err := client.Submit[loginResult](context.Background(), form, client.WithHTTPClient(srv.Client()))

	require.ErrorIs(t, err, client.ErrUnexpectedResponse)
}

func TestSubmitMissingAction(t *testing.T) {
	t.Parallel()

	_, err := client.Submit[loginResult](context.Background(), client.Form{Method: http.MethodPost})
	require.ErrorIs(t, err, client.ErrMissingAction)
}

func TestSubmitSendsHeadersAndLogs(t *testing.T) {
	t.Parallel()

	var gotAccept, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotToken = r.Header.Get("X-CSRF-Token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"reject","body":null,"error":{"message":"no"},"redirect_location":null}`))
	}))
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	form := client.Form{Action: srv.URL, Method: http.MethodPost, Data: formact.NewFormData().Append("a", "1")}
	_, err := client.Submit[loginResult](context.Background(), form,
		client.WithHTTPClient(srv.Client()),
		client.WithHeader("X-CSRF-Token", "tok"),
		client.WithLogger(logger))

	require.NoError(t, err)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "tok", gotToken)
	assert.Contains(t, logs.String(), "type=reject")
}

func TestNavigateResolvesRelativeLocation(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/account/login")
	require.NoError(t, err)

	err = client.Navigate(srv.Client(), base)(context.Background(), "settings")
	require.NoError(t, err)
	assert.Equal(t, "/account/settings", gotPath)
}
