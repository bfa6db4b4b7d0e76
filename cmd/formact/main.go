package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/pthm/formact"
	"github.com/pthm/formact/client"
)

const version = "0.1.0"

var (
	redirectColor = color.New(color.FgYellow)
	rejectColor   = color.New(color.FgRed, color.Bold)
)

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitReject = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitError
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "submit":
		code, err := runSubmit(ctx, args, stdout, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return code
	case "version":
		fmt.Fprintf(stdout, "formact version %s\n", version)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		printUsage(stderr)
		return exitError
	}
	return exitOK
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `formact - submit HTML forms and print the structured result

Usage:
  formact <command> [arguments]

Commands:
  submit [options] URL  Submit a form to URL
  version               Print version
  help                  Show this help

Options for submit:
  -X METHOD             Form method (default POST)
  -f name=value         Add a field (repeatable)
  -F name=@path         Add a file from path (repeatable)
  -H "Key: Value"       Add a request header (repeatable)
  --urlencoded          Send application/x-www-form-urlencoded instead of multipart
  --json                Ask for a JSON result (default)
  --msgpack             Ask for a msgpack result
  --follow              Load the redirect location after a redirect result
  -v                    Log requests to stderr

Exit status is 2 when the submission is rejected.

Examples:
  formact submit -f username=ada -f password=secret http://localhost:8080/
  formact submit -F avatar=@me.png --msgpack http://localhost:8080/profile`)
}

type submitArgs struct {
	form    client.Form
	opts    []client.Option
	follow  bool
	verbose bool
}

func parseSubmitArgs(args []string) (*submitArgs, error) {
	sa := &submitArgs{
		form: client.Form{Method: http.MethodPost, Data: formact.NewFormData()},
	}

	next := func(i *int, flag string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-X":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			sa.form.Method = strings.ToUpper(v)
		case "-f":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			name, value, ok := strings.Cut(v, "=")
			if !ok {
				return nil, fmt.Errorf("field %q: want name=value", v)
			}
			sa.form.Data.Append(name, value)
		case "-F":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			if err := addFile(sa.form.Data, v); err != nil {
				return nil, err
			}
		case "-H":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			key, value, ok := strings.Cut(v, ":")
			if !ok {
				return nil, fmt.Errorf("header %q: want \"Key: Value\"", v)
			}
			sa.opts = append(sa.opts, client.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
		case "--urlencoded":
			sa.form.Enctype = formact.ContentTypeURLEncoded
		case "--json":
		case "--msgpack":
			sa.opts = append(sa.opts, client.WithMsgpack())
		case "--follow":
			sa.follow = true
		case "-v":
			sa.verbose = true
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown option: %s", arg)
			}
			if sa.form.Action != "" {
				return nil, fmt.Errorf("unexpected argument: %s", arg)
			}
			sa.form.Action = arg
		}
	}

	if sa.form.Action == "" {
		return nil, errors.New("missing URL")
	}
	return sa, nil
}

func addFile(fd *formact.FormData, arg string) error {
	name, path, ok := strings.Cut(arg, "=@")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("file %q: want name=@path", arg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	fd.AppendFile(name, &formact.File{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	})
	return nil
}

func runSubmit(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	sa, err := parseSubmitArgs(args)
	if err != nil {
		return exitError, err
	}

	opts := sa.opts
	if sa.verbose {
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, client.WithLogger(logger))
	}
	if !sa.follow {
		opts = append(opts, client.WithRedirectHandler(func(ctx context.Context, location string) error {
			redirectColor.Fprintf(stderr, "redirect: %s\n", location)
			return nil
		}))
	} else if action, err := url.Parse(sa.form.Action); err == nil {
		opts = append(opts, client.WithRedirectHandler(client.Navigate(http.DefaultClient, action)))
	}

	res, err := client.Submit[any](ctx, sa.form, opts...)
	if err != nil {
		return exitError, err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return exitError, err
	}
	if res.Type == formact.KindReject {
		rejectColor.Fprintf(stderr, "rejected: %s\n", res.ErrorMessage())
		return exitReject, nil
	}
	return exitOK, nil
}
