package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sstent/buzzsample/internal/config"
	"github.com/sstent/buzzsample/internal/report"
)

// app carries the per-invocation state shared by all subcommands.
type app struct {
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	cfgFile string
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "buzzsample",
		Short: "buzzsample exercises the Buzz API with OAuth2",
		Long: `buzzsample is a CLI application that:
1. Authorizes against Google with OAuth2
2. Lists your groups and activities
3. Creates, updates and deletes a group and an activity (unless --read-only)
4. Tracks created resources in SQLite so aborted runs can be cleaned up`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.readConfigFile()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScript(cmd.Context())
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default: ./buzzsample.yaml or $HOME/.config/buzzsample/buzzsample.yaml)")
	flags.Bool("read-only", false, "Only perform read-only calls")
	flags.Bool("pretty-print", true, "Ask the API for pretty-printed responses")
	flags.String("db-path", "buzzsample.db", "Path to the SQLite ledger and token cache")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")

	for key, flag := range map[string]string{
		"read_only":    "read-only",
		"pretty_print": "pretty-print",
		"db_path":      "db-path",
		"log_level":    "log-level",
		"log_format":   "log-format",
	} {
		a.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newAuthCmd(a))
	rootCmd.AddCommand(newResidueCmd(a))
	rootCmd.AddCommand(newCleanupCmd(a))
	return rootCmd
}

func (a *app) readConfigFile() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("buzzsample")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "buzzsample"))
		}
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(a.v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "panic: %v\n\n%s", r, debug.Stack())
			code = 1
		}
	}()

	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	config.SetDefaults(a.v)

	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		report.PrintError(stderr, err)
		return 1
	}
	return 0
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
