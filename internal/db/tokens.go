package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no token is cached for a client and scope.
var ErrNoToken = errors.New("no cached token")

// LoadToken returns the cached token for clientID and scope.
func (d *SQLiteDatabase) LoadToken(clientID, scope string) (*oauth2.Token, error) {
	var tok oauth2.Token
	var expiry string
	err := d.db.QueryRow(
		"SELECT access_token, refresh_token, token_type, expiry FROM tokens WHERE client_id = ? AND scope = ?",
		clientID, scope,
	).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if expiry != "" {
		tok.Expiry, err = time.Parse(time.RFC3339, expiry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token expiry: %w", err)
		}
	}
	return &tok, nil
}

// SaveToken stores tok for clientID and scope. An empty refresh token does
// not overwrite a previously stored one.
func (d *SQLiteDatabase) SaveToken(clientID, scope string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("refusing to save empty token")
	}
	expiry := ""
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	_, err := d.db.Exec(
		`INSERT INTO tokens (client_id, scope, access_token, refresh_token, token_type, expiry)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(client_id, scope) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = CASE WHEN excluded.refresh_token = '' THEN tokens.refresh_token ELSE excluded.refresh_token END,
		   token_type = excluded.token_type,
		   expiry = excluded.expiry`,
		clientID, scope, tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry,
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}
