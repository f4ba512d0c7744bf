// Package report prints run failures the way the user needs to see them.
package report

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/sstent/buzzsample/internal/buzz"
	"github.com/sstent/buzzsample/internal/config"
)

// PrintError writes a diagnostic for err to w.
//
// API errors with a JSON body print "<code> Error: <message>" followed by
// one JSON line per sub-error. Any other HTTP error prints the raw response
// body. Missing credentials print the configuration hint. Everything else
// prints the error with its stack trace.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}

	if errors.Is(err, config.ErrMissingCredentials) {
		fmt.Fprintln(w, config.CredentialsHint)
		return
	}

	var httpErr *buzz.HTTPError
	if errors.As(err, &httpErr) {
		printHTTPError(w, httpErr)
		return
	}

	fmt.Fprintf(w, "%+v\n", err)
}

func printHTTPError(w io.Writer, httpErr *buzz.HTTPError) {
	if !httpErr.IsJSON() {
		w.Write(httpErr.Body)
		return
	}

	parsed, err := httpErr.ParseError()
	if err != nil {
		w.Write(httpErr.Body)
		return
	}

	fmt.Fprintf(w, "%d Error: %s\n", parsed.Code, parsed.Message)
	for _, info := range parsed.Errors {
		data, err := json.Marshal(info)
		if err != nil {
			fmt.Fprintf(w, "%+v\n", info)
			continue
		}
		fmt.Fprintln(w, string(data))
	}
}
