package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/sstent/buzzsample/internal/auth"
	"github.com/sstent/buzzsample/internal/buzz"
	"github.com/sstent/buzzsample/internal/config"
	"github.com/sstent/buzzsample/internal/ctxlog"
	"github.com/sstent/buzzsample/internal/db"
	"github.com/sstent/buzzsample/internal/observability"
	"github.com/sstent/buzzsample/internal/script"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Buzz sample script",
		Long: `Lists groups and activities. Unless --read-only is set, also inserts and
updates a group, inserts and updates an activity shared with that group, and
deletes both again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScript(cmd.Context())
		},
	}
}

// session is everything an authorized command needs.
type session struct {
	cfg      *config.Config
	database *db.SQLiteDatabase
	client   *buzz.Client
}

func (s *session) Close() error {
	return s.database.Close()
}

// openSession loads config, checks credentials, opens the database and
// authorizes. The credential check happens before anything touches disk
// or network.
func (a *app) openSession(ctx context.Context) (context.Context, *session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return ctx, nil, err
	}
	if err := cfg.CheckCredentials(); err != nil {
		return ctx, nil, err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, a.stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	database, err := db.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return ctx, nil, errors.Wrap(err, "failed to connect to database")
	}

	httpClient, err := auth.NewAuthorizer(cfg, database, a.stdout).Client(ctx)
	if err != nil {
		database.Close()
		return ctx, nil, errors.Wrap(err, "authorization failed")
	}

	client, err := buzz.NewClient(httpClient, buzz.Options{
		BaseURL:     cfg.APIBaseURL,
		PrettyPrint: cfg.PrettyPrint,
		UserAgent:   cfg.ApplicationName,
	})
	if err != nil {
		database.Close()
		return ctx, nil, errors.Wrap(err, "failed to create Buzz client")
	}

	return ctx, &session{cfg: cfg, database: database, client: client}, nil
}

func (a *app) runScript(ctx context.Context) error {
	ctx, s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	runErr := script.Run(ctx, s.client, script.Options{
		ReadOnly: s.cfg.ReadOnly,
		Out:      a.stdout,
		Ledger:   s.database,
		RunID:    uuid.NewString(),
	})

	if err := observability.Push(s.cfg.MetricsPushURL, "buzzsample"); err != nil {
		ctxlog.FromContext(ctx).Warn("metrics push failed", "error", err)
	}
	return runErr
}
