package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/sstent/buzzsample/internal/buzz"
	"github.com/sstent/buzzsample/internal/ctxlog"
	"github.com/sstent/buzzsample/internal/db"
)

// retryBaseDelay is the first backoff step between delete attempts.
var retryBaseDelay = 2 * time.Second

func newCleanupCmd(a *app) *cobra.Command {
	var maxRetries int

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete resources left behind by aborted runs",
		Long: `Reconciles the ledger with the Buzz API and deletes every group and
activity that a previous run created but never deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxRetries < 1 {
				return errors.Errorf("--max-retries must be at least 1, got %d", maxRetries)
			}

			ctx, s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			ctx = ctxlog.With(ctx, "command", "cleanup")

			fmt.Fprintln(a.stdout, "Reconciling ledger with Buzz...")
			marked, err := s.database.Reconcile(ctx, s.client)
			if err != nil {
				return errors.Wrap(err, "ledger reconcile failed")
			}
			if marked > 0 {
				fmt.Fprintf(a.stdout, "%d resources were already gone\n", marked)
			}

			residue, err := s.database.GetResidue()
			if err != nil {
				return errors.Wrap(err, "failed to get residue")
			}

			total := len(residue)
			if total == 0 {
				fmt.Fprintln(a.stdout, "No residue to clean up")
				return nil
			}
			fmt.Fprintf(a.stdout, "Found %d resources to delete\n", total)

			// Activities reference groups, so they go first.
			sort.SliceStable(residue, func(i, j int) bool {
				return residue[i].Kind == db.KindActivity && residue[j].Kind != db.KindActivity
			})

			successCount := 0
			for i, r := range residue {
				fmt.Fprintf(a.stdout, "[%d/%d] Deleting %s %s\n", i+1, total, r.Kind, r.ResourceID)

				var lastErr error
				for attempt := 1; attempt <= maxRetries; attempt++ {
					lastErr = deleteResource(ctx, s.client, r)
					if lastErr == nil {
						break
					}
					fmt.Fprintf(a.stdout, "⚠️ Attempt %d/%d failed: %v\n", attempt, maxRetries, lastErr)
					if attempt < maxRetries {
						retryDelay := time.Duration(attempt) * retryBaseDelay
						fmt.Fprintf(a.stdout, "⏳ Retrying in %v...\n", retryDelay)
						select {
						case <-time.After(retryDelay):
						case <-ctx.Done():
							return ctx.Err()
						}
					}
				}

				if lastErr != nil {
					fmt.Fprintf(a.stdout, "❌ Failed to delete %s %s after %d attempts: %v\n", r.Kind, r.ResourceID, maxRetries, lastErr)
					continue
				}
				if err := s.database.MarkDeleted(r.Kind, r.ResourceID); err != nil {
					fmt.Fprintf(a.stdout, "⚠️ Failed to mark %s %s as deleted: %v\n", r.Kind, r.ResourceID, err)
					continue
				}
				successCount++
				fmt.Fprintf(a.stdout, "✅ Deleted %s %s\n", r.Kind, r.ResourceID)
			}

			fmt.Fprintf(a.stdout, "\n📊 Cleanup summary: %d/%d resources deleted\n", successCount, total)
			if successCount < total {
				return errors.Errorf("failed to delete %d resources", total-successCount)
			}
			return nil
		},
	}

	cleanupCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Maximum delete attempts per resource")
	return cleanupCmd
}

// deleteResource removes r remotely. A resource that is already gone counts
// as deleted.
func deleteResource(ctx context.Context, client *buzz.Client, r db.Resource) error {
	var err error
	switch r.Kind {
	case db.KindActivity:
		err = client.DeleteActivity(ctx, buzz.Me, r.ResourceID)
	case db.KindGroup:
		err = client.DeleteGroup(ctx, buzz.Me, r.ResourceID)
	default:
		return errors.Errorf("unknown resource kind %q", r.Kind)
	}

	var httpErr *buzz.HTTPError
	if errors.As(err, &httpErr) && httpErr.NotFound() {
		return nil
	}
	return err
}
