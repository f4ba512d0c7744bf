package db

import (
	"context"
	"fmt"

	"github.com/sstent/buzzsample/internal/buzz"
)

// Remote is the subset of the Buzz API needed to reconcile the ledger.
type Remote interface {
	ListGroups(ctx context.Context, userID string) ([]buzz.Group, error)
	ListActivities(ctx context.Context, userID, scope string) ([]buzz.Activity, error)
}

// Reconcile marks residue as deleted when the remote service no longer has
// it. It returns the number of entries it marked.
func (d *SQLiteDatabase) Reconcile(ctx context.Context, remote Remote) (int, error) {
	residue, err := d.GetResidue()
	if err != nil {
		return 0, fmt.Errorf("failed to get residue: %w", err)
	}
	if len(residue) == 0 {
		return 0, nil
	}

	groups, err := remote.ListGroups(ctx, buzz.Me)
	if err != nil {
		return 0, fmt.Errorf("failed to get remote groups: %w", err)
	}
	activities, err := remote.ListActivities(ctx, buzz.Me, buzz.ScopeSelf)
	if err != nil {
		return 0, fmt.Errorf("failed to get remote activities: %w", err)
	}

	// Create map for quick lookup of remote resources
	remoteMap := map[string]map[string]bool{
		KindGroup:    make(map[string]bool, len(groups)),
		KindActivity: make(map[string]bool, len(activities)),
	}
	for _, g := range groups {
		remoteMap[KindGroup][g.ID] = true
	}
	for _, a := range activities {
		remoteMap[KindActivity][a.ID] = true
	}

	marked := 0
	for _, r := range residue {
		known, ok := remoteMap[r.Kind]
		if !ok || known[r.ResourceID] {
			continue
		}
		if err := d.MarkDeleted(r.Kind, r.ResourceID); err != nil {
			return marked, err
		}
		marked++
	}

	return marked, nil
}
