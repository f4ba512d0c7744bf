package buzz

import "time"

// Group represents a Buzz group an activity can be shared with
type Group struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Title       string `json:"title"`
	MemberCount int    `json:"memberCount,omitempty"`
	Links       *Links `json:"links,omitempty"`
}

// Links holds the hyperlinks attached to a resource.
type Links struct {
	Self []Link `json:"self,omitempty"`
	Next []Link `json:"next,omitempty"`
}

type Link struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Activity represents a Buzz post
type Activity struct {
	ID         string          `json:"id,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Title      string          `json:"title,omitempty"`
	Object     *ActivityObject `json:"object,omitempty"`
	Visibility *Visibility     `json:"visibility,omitempty"`
	Published  *time.Time      `json:"published,omitempty"`
	Updated    *time.Time      `json:"updated,omitempty"`
}

// ActivityObject is the payload of an activity.
type ActivityObject struct {
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`
}

// Visibility restricts who can see an activity.
type Visibility struct {
	Entries []VisibilityEntry `json:"entries"`
}

type VisibilityEntry struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Content returns the activity body, or "" when it has none.
func (a *Activity) Content() string {
	if a == nil || a.Object == nil {
		return ""
	}
	return a.Object.Content
}

// Feed scopes for ListActivities.
const (
	ScopeSelf        = "@self"
	ScopeConsumption = "@consumption"
	ScopePublic      = "@public"
)

// Me identifies the authenticated user.
const Me = "@me"

type envelope[T any] struct {
	Data T `json:"data"`
}

type feed[T any] struct {
	Items []T    `json:"items"`
	Links *Links `json:"links,omitempty"`
}

// next returns the href of the following page, or "" on the last one.
func (f *feed[T]) next() string {
	if f.Links == nil {
		return ""
	}
	for _, l := range f.Links.Next {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}
