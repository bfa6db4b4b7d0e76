// Package formact handles HTML form submissions for server-rendered Go
// applications.
//
// A page that hosts a form serves both the initial GET and the POST of that
// form. Handle inspects the request, parses the form body, calls your
// handler, and turns the outcome into a Result that the page render and a
// JSON-consuming client both understand.
//
// # Outcomes
//
// A handler has four possible outcomes:
//
//   - success: the handler returned normally, Result.Body holds its value
//   - reject: the handler returned Reject(status, data)
//   - redirect: the handler returned Redirect(status, location)
//   - ignore: the request was not a form POST, the handler never ran
//
// Any other error returned by the handler is not an outcome. It propagates
// out of Handle for the application's usual error handling.
//
//	func handleLogin(ctx context.Context, form *formact.FormData) (Session, error) {
//	    user, err := auth.Check(ctx, form.Get("username"), form.Get("password"))
//	    if errors.Is(err, auth.ErrInvalidCredentials) {
//	        return Session{}, formact.RejectWithMessage(http.StatusUnprocessableEntity,
//	            "Invalid username or password")
//	    }
//	    if err != nil {
//	        return Session{}, err
//	    }
//	    return Session{}, formact.SeeOther("/home")
//	}
//
// # Content Negotiation
//
// Clients that send Accept: application/json (or application/msgpack)
// receive a pre-built Result.Response carrying the wire result
//
//	{"type": "reject", "body": null, "error": {"message": "..."}, "redirect_location": null}
//
// with the signal's status code. Plain browser submissions get the HTML
// path instead: the Location header of a redirect is set on the
// ResponseWriter, the status waits in Result.Status until the page starts
// writing, and the caller renders the page with Result.InputValues and
// Result.Error.
//
// The client package submits forms from Go and follows redirect results.
//
// # Serving a Form Page
//
//	mux.Handle("/login", formact.NewHandler(handleLogin, renderLogin))
//
// NewHandler wires Handle to a render function and an error handler, and
// writes structured replies itself.
package formact
