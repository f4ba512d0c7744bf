// Package script runs the fixed sequence of Buzz calls: show groups and
// activities, and when mutations are enabled create, update and delete a
// group and an activity, leaving nothing behind.
package script

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sstent/buzzsample/internal/buzz"
	"github.com/sstent/buzzsample/internal/ctxlog"
	"github.com/sstent/buzzsample/internal/db"
)

// Service is the Buzz API surface the script drives.
type Service interface {
	ListGroups(ctx context.Context, userID string) ([]buzz.Group, error)
	InsertGroup(ctx context.Context, userID string, group *buzz.Group) (*buzz.Group, error)
	UpdateGroup(ctx context.Context, userID string, group *buzz.Group) (*buzz.Group, error)
	DeleteGroup(ctx context.Context, userID, groupID string) error
	ListActivities(ctx context.Context, userID, scope string) ([]buzz.Activity, error)
	InsertActivity(ctx context.Context, userID string, activity *buzz.Activity) (*buzz.Activity, error)
	UpdateActivity(ctx context.Context, userID string, activity *buzz.Activity) (*buzz.Activity, error)
	DeleteActivity(ctx context.Context, userID, activityID string) error
}

// Ledger records what a run created so an aborted run can be cleaned up.
type Ledger interface {
	RecordCreated(kind, resourceID, title, runID string) error
	MarkDeleted(kind, resourceID string) error
}

// Options controls a run.
type Options struct {
	ReadOnly bool
	Out      io.Writer
	Ledger   Ledger // optional
	RunID    string
	Now      func() time.Time
}

type runner struct {
	svc  Service
	opts Options
}

// Run executes the script. The first failing call aborts the run and its
// error is returned with a stack trace attached.
func Run(ctx context.Context, svc Service, opts Options) error {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &runner{svc: svc, opts: opts}
	ctx = ctxlog.With(ctx, "run_id", opts.RunID)
	logger := ctxlog.FromContext(ctx)

	logger.Info("starting run", "read_only", opts.ReadOnly)

	// groups
	if err := r.showGroups(ctx); err != nil {
		return err
	}
	var group *buzz.Group
	if !opts.ReadOnly {
		var err error
		if group, err = r.insertGroup(ctx); err != nil {
			return err
		}
		if group, err = r.updateGroup(ctx, group); err != nil {
			return err
		}
	}

	// activities
	if err := r.showActivities(ctx, "Activities for consumption", buzz.ScopeConsumption); err != nil {
		return err
	}
	if err := r.showActivities(ctx, "Personal activities", buzz.ScopeSelf); err != nil {
		return err
	}
	if !opts.ReadOnly {
		activity, err := r.insertActivity(ctx, group)
		if err != nil {
			return err
		}
		if activity, err = r.updateActivity(ctx, activity); err != nil {
			return err
		}
		// clean up
		if err := r.deleteActivity(ctx, activity); err != nil {
			return err
		}
		if err := r.deleteGroup(ctx, group); err != nil {
			return err
		}
	}

	logger.Info("run complete")
	return nil
}

func (r *runner) showGroups(ctx context.Context) error {
	groups, err := r.svc.ListGroups(ctx, buzz.Me)
	if err != nil {
		return errors.Wrap(err, "failed to list groups")
	}
	fmt.Fprintln(r.opts.Out, "Groups:")
	if len(groups) == 0 {
		fmt.Fprintln(r.opts.Out, "  (none)")
	}
	for _, g := range groups {
		printGroup(r.opts.Out, &g)
	}
	return nil
}

func (r *runner) insertGroup(ctx context.Context) (*buzz.Group, error) {
	group := &buzz.Group{
		Title: fmt.Sprintf("Temporary Group (%s)", r.opts.Now().Format(time.RFC3339)),
	}
	created, err := r.svc.InsertGroup(ctx, buzz.Me, group)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert group")
	}
	if err := r.record(db.KindGroup, created.ID, created.Title); err != nil {
		return nil, err
	}
	fmt.Fprintln(r.opts.Out, "Inserted group:")
	printGroup(r.opts.Out, created)
	return created, nil
}

func (r *runner) updateGroup(ctx context.Context, group *buzz.Group) (*buzz.Group, error) {
	patched := *group
	patched.Title = group.Title + " (updated)"
	updated, err := r.svc.UpdateGroup(ctx, buzz.Me, &patched)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update group")
	}
	// Some responses omit the id; later steps still need it.
	if updated.ID == "" {
		updated.ID = group.ID
	}
	fmt.Fprintln(r.opts.Out, "Updated group:")
	printGroup(r.opts.Out, updated)
	return updated, nil
}

func (r *runner) deleteGroup(ctx context.Context, group *buzz.Group) error {
	if err := r.svc.DeleteGroup(ctx, buzz.Me, group.ID); err != nil {
		return errors.Wrap(err, "failed to delete group")
	}
	if err := r.markDeleted(db.KindGroup, group.ID); err != nil {
		return err
	}
	fmt.Fprintf(r.opts.Out, "Deleted group %s\n", group.ID)
	return nil
}

func (r *runner) showActivities(ctx context.Context, title, scope string) error {
	activities, err := r.svc.ListActivities(ctx, buzz.Me, scope)
	if err != nil {
		return errors.Wrapf(err, "failed to list %s activities", scope)
	}
	fmt.Fprintf(r.opts.Out, "%s:\n", title)
	if len(activities) == 0 {
		fmt.Fprintln(r.opts.Out, "  (none)")
	}
	for _, a := range activities {
		printActivity(r.opts.Out, &a)
	}
	return nil
}

func (r *runner) insertActivity(ctx context.Context, group *buzz.Group) (*buzz.Activity, error) {
	activity := &buzz.Activity{
		Object: &buzz.ActivityObject{
			Type:    "note",
			Content: fmt.Sprintf("Posting using the Buzz sample at %s", r.opts.Now().Format(time.RFC3339)),
		},
		Visibility: &buzz.Visibility{
			Entries: []buzz.VisibilityEntry{{ID: group.ID, Title: group.Title}},
		},
	}
	created, err := r.svc.InsertActivity(ctx, buzz.Me, activity)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert activity")
	}
	if err := r.record(db.KindActivity, created.ID, created.Content()); err != nil {
		return nil, err
	}
	fmt.Fprintln(r.opts.Out, "Inserted activity:")
	printActivity(r.opts.Out, created)
	return created, nil
}

func (r *runner) updateActivity(ctx context.Context, activity *buzz.Activity) (*buzz.Activity, error) {
	patched := *activity
	patched.Object = &buzz.ActivityObject{
		Type:    "note",
		Content: fmt.Sprintf("Updated using the Buzz sample at %s", r.opts.Now().Format(time.RFC3339)),
	}
	updated, err := r.svc.UpdateActivity(ctx, buzz.Me, &patched)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update activity")
	}
	if updated.ID == "" {
		updated.ID = activity.ID
	}
	fmt.Fprintln(r.opts.Out, "Updated activity:")
	printActivity(r.opts.Out, updated)
	return updated, nil
}

func (r *runner) deleteActivity(ctx context.Context, activity *buzz.Activity) error {
	if err := r.svc.DeleteActivity(ctx, buzz.Me, activity.ID); err != nil {
		return errors.Wrap(err, "failed to delete activity")
	}
	if err := r.markDeleted(db.KindActivity, activity.ID); err != nil {
		return err
	}
	fmt.Fprintf(r.opts.Out, "Deleted activity %s\n", activity.ID)
	return nil
}

func (r *runner) record(kind, id, title string) error {
	if r.opts.Ledger == nil {
		return nil
	}
	return errors.WithStack(r.opts.Ledger.RecordCreated(kind, id, title, r.opts.RunID))
}

func (r *runner) markDeleted(kind, id string) error {
	if r.opts.Ledger == nil {
		return nil
	}
	return errors.WithStack(r.opts.Ledger.MarkDeleted(kind, id))
}

func printGroup(w io.Writer, g *buzz.Group) {
	fmt.Fprintf(w, "  ID: %s | %s | %d members\n", g.ID, g.Title, g.MemberCount)
}

func printActivity(w io.Writer, a *buzz.Activity) {
	fmt.Fprintf(w, "  ID: %s | %s\n", a.ID, a.Content())
}
