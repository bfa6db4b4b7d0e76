// Package formactecho provides Echo framework integration for formact.
//
// Serve a form page from an Echo route:
//
//	e := echo.New()
//	e.Any("/login", formactecho.Wrap(handleLogin, renderLogin))
//
// Or call Handle inside an existing handler:
//
//	func login(c echo.Context) error {
//	    res, err := formactecho.Handle(c, handleLogin)
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
package formactecho

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/formact"
)

// RenderFunc renders the HTML page for a submission on the Echo context.
type RenderFunc[V any] func(c echo.Context, res formact.Result[V]) error

// Handle runs the request on c through formact.Handle.
//
// A structured reply is written to the response before returning, so the
// caller only has to deal with the HTML path. There the pending reject or
// redirect status is stored on c.Response() and goes out with the first
// write, after any headers the page sets. Parse failures come back as
// *echo.HTTPError with a matching status code.
func Handle[V any](c echo.Context, h formact.HandlerFunc[V], opts ...formact.Option) (formact.Result[V], error) {
	res, err := formact.Handle(c.Response(), c.Request(), h, opts...)
	if err != nil {
		return res, httpError(err)
	}
	if res.Response != nil {
		if err := res.Response.Render(c.Response(), c.Request()); err != nil {
			return res, err
		}
		return res, nil
	}
	if res.Status != 0 {
		c.Response().Status = res.Status
	}
	return res, nil
}

// Wrap turns a submission handler and a render function into an
// echo.HandlerFunc, mirroring formact.NewHandler.
//
//	e.Any("/login", formactecho.Wrap(handleLogin, func(c echo.Context, res formact.Result[Login]) error {
//	    return formactecho.Render(c, LoginPage(res.ErrorMessage(), res.InputValues))
//	}))
func Wrap[V any](h formact.HandlerFunc[V], render RenderFunc[V], opts ...formact.Option) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := Handle(c, h, opts...)
		if err != nil {
			return err
		}
		if res.Response != nil {
			return nil
		}
		if !res.IsRedirect() && render != nil {
			if err := render(c, res); err != nil {
				return err
			}
		}
		if resp := c.Response(); !resp.Committed && res.Status != 0 {
			resp.WriteHeader(resp.Status)
		}
		return nil
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, formact.ErrBodyTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge).SetInternal(err)
	case errors.Is(err, formact.ErrUnsupportedContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType).SetInternal(err)
	case errors.Is(err, formact.ErrInvalidForm):
		return echo.NewHTTPError(http.StatusBadRequest).SetInternal(err)
	}
	return err
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return formactecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
