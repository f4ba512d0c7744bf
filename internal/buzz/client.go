package buzz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sstent/buzzsample/internal/ctxlog"
	"github.com/sstent/buzzsample/internal/observability"
)

// DefaultBaseURL is the production Buzz v1 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/buzz/v1/"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 1 << 20

// maxPages bounds how many next links a single list call follows.
const maxPages = 1000

// Options configures a Client.
type Options struct {
	BaseURL     string
	PrettyPrint bool
	UserAgent   string
}

// Client represents a Buzz API client
type Client struct {
	http    *http.Client
	baseURL *url.URL
	opts    Options
}

// NewClient creates a new Buzz client on top of an authorized HTTP client.
func NewClient(httpClient *http.Client, opts Options) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	return &Client{http: httpClient, baseURL: base, opts: opts}, nil
}

// ListGroups returns the groups owned by userID.
func (c *Client) ListGroups(ctx context.Context, userID string) ([]Group, error) {
	path := fmt.Sprintf("people/%s/@groups", url.PathEscape(userID))
	return listAll[Group](ctx, c, "groups.list", path)
}

// InsertGroup creates a group for userID.
func (c *Client) InsertGroup(ctx context.Context, userID string, group *Group) (*Group, error) {
	var out envelope[Group]
	path := fmt.Sprintf("people/%s/@groups", url.PathEscape(userID))
	if err := c.do(ctx, "groups.insert", http.MethodPost, path, envelope[*Group]{Data: group}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// UpdateGroup replaces the group identified by group.ID.
func (c *Client) UpdateGroup(ctx context.Context, userID string, group *Group) (*Group, error) {
	if group == nil || group.ID == "" {
		return nil, fmt.Errorf("update group: missing group ID")
	}
	var out envelope[Group]
	path := fmt.Sprintf("people/%s/@groups/%s", url.PathEscape(userID), url.PathEscape(group.ID))
	if err := c.do(ctx, "groups.update", http.MethodPut, path, envelope[*Group]{Data: group}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// DeleteGroup removes a group.
func (c *Client) DeleteGroup(ctx context.Context, userID, groupID string) error {
	path := fmt.Sprintf("people/%s/@groups/%s", url.PathEscape(userID), url.PathEscape(groupID))
	return c.do(ctx, "groups.delete", http.MethodDelete, path, nil, nil)
}

// ListActivities returns the activity feed of userID for the given scope
// (ScopeSelf, ScopeConsumption, ...).
func (c *Client) ListActivities(ctx context.Context, userID, scope string) ([]Activity, error) {
	path := fmt.Sprintf("activities/%s/%s", url.PathEscape(userID), scope)
	return listAll[Activity](ctx, c, "activities.list", path)
}

// InsertActivity posts a new activity for userID.
func (c *Client) InsertActivity(ctx context.Context, userID string, activity *Activity) (*Activity, error) {
	var out envelope[Activity]
	path := fmt.Sprintf("activities/%s/%s", url.PathEscape(userID), ScopeSelf)
	if err := c.do(ctx, "activities.insert", http.MethodPost, path, envelope[*Activity]{Data: activity}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// UpdateActivity replaces the activity identified by activity.ID.
func (c *Client) UpdateActivity(ctx context.Context, userID string, activity *Activity) (*Activity, error) {
	if activity == nil || activity.ID == "" {
		return nil, fmt.Errorf("update activity: missing activity ID")
	}
	var out envelope[Activity]
	path := fmt.Sprintf("activities/%s/%s/%s", url.PathEscape(userID), ScopeSelf, url.PathEscape(activity.ID))
	if err := c.do(ctx, "activities.update", http.MethodPut, path, envelope[*Activity]{Data: activity}, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// DeleteActivity removes an activity.
func (c *Client) DeleteActivity(ctx context.Context, userID, activityID string) error {
	path := fmt.Sprintf("activities/%s/%s/%s", url.PathEscape(userID), ScopeSelf, url.PathEscape(activityID))
	return c.do(ctx, "activities.delete", http.MethodDelete, path, nil, nil)
}

// listAll fetches path and every page its next links point to.
func listAll[T any](ctx context.Context, c *Client, operation, path string) ([]T, error) {
	var items []T
	seen := map[string]bool{}
	for page := 0; path != ""; page++ {
		if page == maxPages || seen[path] {
			return nil, fmt.Errorf("%s: stopped following next links after %d pages", operation, page)
		}
		seen[path] = true

		var out envelope[feed[T]]
		if err := c.do(ctx, operation, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		items = append(items, out.Data.Items...)
		path = out.Data.next()
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) (err error) {
	started := time.Now()
	defer func() { observability.RecordAPICall(operation, started, err) }()

	u, err := c.baseURL.Parse(path)
	if err != nil {
		return fmt.Errorf("failed to build %s URL: %w", operation, err)
	}
	q := u.Query()
	q.Set("alt", "json")
	if c.opts.PrettyPrint {
		q.Set("prettyPrint", "true")
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	ctxlog.FromContext(ctx).Debug("calling buzz api", "operation", operation, "method", method, "url", u.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			StatusCode:  resp.StatusCode,
			Status:      resp.Status,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        data,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}
