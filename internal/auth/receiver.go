package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
)

const callbackPath = "/Callback"

type callbackResult struct {
	code string
	err  error
}

// receiver listens on the IPv4 loopback for the OAuth redirect and hands the
// authorization code back to the flow.
type receiver struct {
	listener net.Listener
	server   *http.Server
	state    string
	results  chan callbackResult
	once     sync.Once
}

func startReceiver(port int, state string) (*receiver, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to start redirect listener: %w", err)
	}

	r := &receiver{
		listener: listener,
		state:    state,
		results:  make(chan callbackResult, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, r.handle)
	r.server = &http.Server{Handler: mux}

	go r.server.Serve(listener)
	return r, nil
}

// RedirectURL is the URL the provider must redirect the browser to. It uses
// the bound loopback address, not localhost.
func (r *receiver) RedirectURL() string {
	port := r.listener.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, callbackPath)
}

func (r *receiver) handle(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")

	var res callbackResult
	switch {
	case req.FormValue("error") != "":
		res.err = fmt.Errorf("authorization denied: %s", req.FormValue("error"))
	case req.FormValue("state") != r.state:
		res.err = errors.New("authorization state mismatch")
	case req.FormValue("code") == "":
		res.err = errors.New("authorization response has no code")
	default:
		res.code = req.FormValue("code")
	}

	if res.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Authorization failed: %v\r\n", res.err)
	} else {
		fmt.Fprint(w, "Received verification code. You may now close this window.\r\n")
	}

	r.once.Do(func() { r.results <- res })
}

// Wait blocks until the redirect arrives or ctx is done.
func (r *receiver) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-r.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *receiver) Close() error {
	return r.server.Close()
}
