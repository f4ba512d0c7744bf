// Package auth runs the OAuth2 installed-application flow against Google
// and produces an authorized HTTP client.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sstent/buzzsample/internal/config"
	"github.com/sstent/buzzsample/internal/ctxlog"
	"github.com/sstent/buzzsample/internal/db"
	"golang.org/x/oauth2"
)

// TokenStore persists OAuth tokens between runs.
type TokenStore interface {
	LoadToken(clientID, scope string) (*oauth2.Token, error)
	SaveToken(clientID, scope string, tok *oauth2.Token) error
}

// Authorizer obtains tokens for the configured client and scope.
type Authorizer struct {
	cfg         *config.Config
	store       TokenStore
	out         io.Writer
	openBrowser func(url string) error
}

// NewAuthorizer creates an Authorizer. Prompts for the user are written to out.
func NewAuthorizer(cfg *config.Config, store TokenStore, out io.Writer) *Authorizer {
	return &Authorizer{
		cfg:   cfg,
		store: store,
		out:   out,
		openBrowser: func(url string) error {
			return openURL(cfg.Browser, url)
		},
	}
}

func (a *Authorizer) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Scopes:       []string{a.cfg.Scope},
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  a.cfg.AuthURL,
			TokenURL: a.cfg.TokenURL,
		},
	}
}

// Token returns a usable token, running the browser flow when nothing
// usable is cached.
func (a *Authorizer) Token(ctx context.Context) (*oauth2.Token, error) {
	logger := ctxlog.FromContext(ctx)

	tok, err := a.store.LoadToken(a.cfg.ClientID, a.cfg.Scope)
	switch {
	case err == nil && (tok.Valid() || tok.RefreshToken != ""):
		logger.Debug("using cached token", "expiry", tok.Expiry)
		return tok, nil
	case err != nil && !errors.Is(err, db.ErrNoToken):
		return nil, err
	}

	return a.authorizeInteractive(ctx)
}

func (a *Authorizer) authorizeInteractive(ctx context.Context) (*oauth2.Token, error) {
	state := uuid.NewString()
	recv, err := startReceiver(a.cfg.RedirectPort, state)
	if err != nil {
		return nil, err
	}
	defer recv.Close()

	oc := a.oauthConfig(recv.RedirectURL())
	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	if err := a.openBrowser(authURL); err != nil {
		ctxlog.FromContext(ctx).Debug("failed to open browser", "error", err)
		fmt.Fprintf(a.out, "Visit the URL below to authorize this application. This program will pause until the site is visited.\n%s\n", authURL)
	} else {
		fmt.Fprintf(a.out, "Your browser has been opened to an authorization URL. This program will resume once authorization has been provided.\n%s\n", authURL)
	}

	code, err := recv.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to receive authorization code: %w", err)
	}

	tok, err := oc.Exchange(a.httpContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := a.store.SaveToken(a.cfg.ClientID, a.cfg.Scope, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client returns an HTTP client that authorizes requests and saves
// refreshed tokens back to the store.
func (a *Authorizer) Client(ctx context.Context) (*http.Client, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}

	// Refreshing does not use the redirect URL.
	oc := a.oauthConfig("")
	src := &persistingSource{
		base:  oc.TokenSource(a.httpContext(ctx), tok),
		store: a.store,
		cfg:   a.cfg,
		last:  tok.AccessToken,
	}

	client := oauth2.NewClient(a.httpContext(ctx), src)
	client.Timeout = a.cfg.HTTPTimeout
	return client, nil
}

func (a *Authorizer) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: a.cfg.HTTPTimeout})
}

type persistingSource struct {
	base  oauth2.TokenSource
	store TokenStore
	cfg   *config.Config

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.SaveToken(s.cfg.ClientID, s.cfg.Scope, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
