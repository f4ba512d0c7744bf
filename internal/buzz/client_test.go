package buzz

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, pretty bool) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.Client(), Options{
		BaseURL:     srv.URL + "/buzz/v1/",
		PrettyPrint: pretty,
		UserAgent:   "Google-BuzzSample/1.0",
	})
	require.NoError(t, err)
	return client
}

func TestListGroups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/buzz/v1/people/@me/@groups", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("alt"))
		assert.Equal(t, "true", r.URL.Query().Get("prettyPrint"))
		assert.Equal(t, "Google-BuzzSample/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"items":[{"id":"g1","title":"Family","memberCount":3},{"id":"g2","title":"Work"}]}}`)
	}, true)

	groups, err := client.ListGroups(context.Background(), Me)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, "Family", groups[0].Title)
	assert.Equal(t, 3, groups[0].MemberCount)
}

func TestListActivitiesFollowsNextLinks(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/buzz/v1/activities/@me/@self", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("alt"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("c") == "" {
			next := "http://" + r.Host + "/buzz/v1/activities/@me/@self?c=page2&alt=json"
			io.WriteString(w, `{"data":{"items":[{"id":"a1"}],"links":{"next":[{"href":"`+next+`"}]}}}`)
			return
		}
		assert.Equal(t, "page2", r.URL.Query().Get("c"))
		io.WriteString(w, `{"data":{"items":[{"id":"a2"},{"id":"a3"}]}}`)
	}, false)

	activities, err := client.ListActivities(context.Background(), Me, ScopeSelf)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, activities, 3)
	assert.Equal(t, "a1", activities[0].ID)
	assert.Equal(t, "a3", activities[2].ID)
}

func TestListGroupsStopsOnNextLinkLoop(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, `{"data":{"items":[{"id":"g1"}],"links":{"next":[{"href":"people/@me/@groups"}]}}}`)
	}, false)

	_, err := client.ListGroups(context.Background(), Me)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped following next links")
	assert.Equal(t, 1, calls)
}

func TestPrettyPrintDisabled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["prettyPrint"]
		assert.False(t, ok)
		io.WriteString(w, `{"data":{}}`)
	}, false)

	_, err := client.ListActivities(context.Background(), Me, ScopeConsumption)
	require.NoError(t, err)
}

func TestInsertAndUpdateActivity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in envelope[Activity]
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/buzz/v1/activities/@me/@self", r.URL.Path)
			require.NotNil(t, in.Data.Visibility)
			assert.Equal(t, "g1", in.Data.Visibility.Entries[0].ID)
			in.Data.ID = "a1"
		case http.MethodPut:
			assert.Equal(t, "/buzz/v1/activities/@me/@self/a1", r.URL.Path)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
		json.NewEncoder(w).Encode(in)
	}, false)

	created, err := client.InsertActivity(context.Background(), Me, &Activity{
		Object:     &ActivityObject{Type: "note", Content: "hello"},
		Visibility: &Visibility{Entries: []VisibilityEntry{{ID: "g1"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", created.ID)
	assert.Equal(t, "hello", created.Content())

	created.Object.Content = "updated"
	updated, err := client.UpdateActivity(context.Background(), Me, created)
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Content())
}

func TestUpdateRequiresID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}, false)

	_, err := client.UpdateGroup(context.Background(), Me, &Group{Title: "x"})
	require.Error(t, err)
	_, err = client.UpdateActivity(context.Background(), Me, &Activity{})
	require.Error(t, err)
}

func TestDeleteGroupNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/buzz/v1/people/@me/@groups/g1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}, false)

	require.NoError(t, client.DeleteGroup(context.Background(), Me, "g1"))
}

func TestHTTPErrorJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"errors":[{"domain":"global","reason":"forbidden","message":"Forbidden"}],"code":403,"message":"Forbidden"}}`)
	}, false)

	_, err := client.ListGroups(context.Background(), Me)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.True(t, httpErr.IsJSON())

	parsed, err := httpErr.ParseError()
	require.NoError(t, err)
	assert.Equal(t, 403, parsed.Code)
	assert.Equal(t, "Forbidden", parsed.Message)
	require.Len(t, parsed.Errors, 1)
	assert.Equal(t, "forbidden", parsed.Errors[0].Reason)
}

func TestHTTPErrorPlain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "Service Unavailable")
	}, false)

	err := client.DeleteActivity(context.Background(), Me, "a1")
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.False(t, httpErr.IsJSON())
	assert.Equal(t, "Service Unavailable", string(httpErr.Body))

	_, err = httpErr.ParseError()
	assert.Error(t, err)
}

func TestHTTPErrorNotFound(t *testing.T) {
	err := &HTTPError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	assert.True(t, err.NotFound())
	assert.Contains(t, err.Error(), "404 Not Found")
}
