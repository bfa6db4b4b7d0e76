package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/pthm/formact"
)

// LoginResult is the success body of a login submission.
type LoginResult struct {
	Username string `json:"username"`
}

// LoginForm renders the login form. errorMessage is shown under the
// submit button; inputValues refill the fields after a failed attempt.
func LoginForm(action, errorMessage string, inputValues map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<form class="w-full" action="%s" method="post" enctype="multipart/form-data">`+
			`<label for="username">Username</label>`+
			`<input name="username" id="username" class="border w-full" value="%s">`+
			`<label for="password">Password</label>`+
			`<input type="password" name="password" id="password" class="border w-full" value="%s">`+
			`<input type="submit" class="border w-full mt-4 bg-black text-white">`,
			templ.EscapeString(action),
			templ.EscapeString(inputString(inputValues, "username")),
			templ.EscapeString(inputString(inputValues, "password")))
		if err != nil {
			return err
		}
		if errorMessage != "" {
			if _, err := fmt.Fprintf(w, `<p class="text-red-400">%s</p>`, templ.EscapeString(errorMessage)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, "</form>")
		return err
	})
}

func inputString(values map[string]any, name string) string {
	s, _ := values[name].(string)
	return s
}

// HomePage greets a signed in user.
func HomePage(username string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>Welcome, %s</h1>`, templ.EscapeString(username))
		return err
	})
}

type loginHandler struct {
	store    *Store
	homePath string
	logger   *slog.Logger
}

func (lh *loginHandler) submit(ctx context.Context, form *formact.FormData) (LoginResult, error) {
	username := form.Get("username")
	if !lh.store.Authenticate(username, form.Get("password")) {
		lh.logger.InfoContext(ctx, "login rejected", slog.String("username", username))
		return LoginResult{}, formact.RejectWithMessage(http.StatusUnprocessableEntity, "Invalid username or password")
	}
	lh.logger.InfoContext(ctx, "login succeeded", slog.String("username", username))
	return LoginResult{Username: username}, formact.SeeOther(lh.homePath+"?user="+url.QueryEscape(username))
}

func (lh *loginHandler) render(w http.ResponseWriter, r *http.Request, res formact.Result[LoginResult]) error {
	return formact.Render(w, r, LoginForm(r.URL.Path, res.ErrorMessage(), res.InputValues))
}
