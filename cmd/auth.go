package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/sstent/buzzsample/internal/auth"
	"github.com/sstent/buzzsample/internal/ctxlog"
	"github.com/sstent/buzzsample/internal/db"
)

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize with Google and cache the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.CheckCredentials(); err != nil {
				return err
			}
			ctx := ctxlog.WithLogger(cmd.Context(), newLogger(cfg.LogLevel, cfg.LogFormat, a.stderr))

			database, err := db.NewDatabase(cfg.DatabasePath)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer database.Close()

			tok, err := auth.NewAuthorizer(cfg, database, a.stdout).Token(ctx)
			if err != nil {
				return errors.Wrap(err, "authorization failed")
			}

			expiry := "never"
			if !tok.Expiry.IsZero() {
				expiry = tok.Expiry.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(a.stdout, "✅ Authorized for %s (token expires %s)\n", cfg.Scope, expiry)
			return nil
		},
	}
}
