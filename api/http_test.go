package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/viewflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", func(o *HTTPOptions) {
		o.Token = func() string { return "secret" }
	})
}

func TestHTTPClient_ChangePassword(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/users/self/password", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old", body["current_password"])
		assert.Equal(t, "new", body["password"])

		_, _ = w.Write([]byte(`{"user":{"email":"test@email.com"}}`))
	})

	email, err := c.ChangePassword(context.Background(), "old", "new")
	require.NoError(t, err)
	assert.Equal(t, "test@email.com", email)
}

func TestHTTPClient_ErrorEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"invalid_password","error_messages":["Current password is incorrect"]}`))
	})

	_, err := c.ChangePassword(context.Background(), "old", "new")
	require.Error(t, err)

	var env *ErrorEnvelope
	require.True(t, errors.As(err, &env))
	assert.Equal(t, 422, env.HTTPCode)
	assert.Equal(t, "invalid_password", env.Code)
	assert.Equal(t, "Current password is incorrect", core.ErrorMessage(err))
	assert.Equal(t, "api: invalid_password: Current password is incorrect", env.Error())
}

func TestHTTPClient_NonJSONError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.FetchCurrentUser(context.Background())
	var env *ErrorEnvelope
	require.True(t, errors.As(err, &env))
	assert.Equal(t, "Bad Gateway", env.Code)
	assert.Equal(t, "api: Bad Gateway: request failed", err.Error())
	assert.Empty(t, env.UserMessage())
}

func TestHTTPClient_FetchCurrentUser(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/self", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":7,"name":"Ada","email":"ada@example.com","location":{"country":"GB"},"is_admin":true,"unseen_activity_count":4}`))
	})

	u, err := c.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.User{ID: 7, Name: "Ada", Email: "ada@example.com", Country: "GB", IsAdmin: true, Unseen: 4}, *u)
}

func TestHTTPClient_SearchProjects(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/discover", r.URL.Path)
		assert.Equal(t, "board games", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"more":true,"projects":[
			{"id":1,"name":"Dice","slug":"dice","creator":{"name":"Bo"},"category":{"name":"Games"},"goal":100,"pledged":150,"state":"live"},
			{"id":2,"name":"Cards","slug":"cards","is_starred":true}
		]}`))
	})

	page, err := c.SearchProjects(context.Background(), SearchParams{Query: "board games", Page: 2})
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Projects, 2)
	assert.Equal(t, "Bo", page.Projects[0].Creator)
	assert.Equal(t, "Games", page.Projects[0].Category)
	assert.InDelta(t, 150.0, page.Projects[0].Percent(), 0.001)
	assert.True(t, page.Projects[0].Live())
	assert.True(t, page.Projects[1].IsStarred)
}

func TestHTTPClient_ToggleBookmark(t *testing.T) {
	var methods []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		assert.Equal(t, "/v1/projects/5/star", r.URL.Path)
		starred := r.Method == http.MethodPut
		resp, _ := json.Marshal(map[string]any{"project": map[string]any{"id": 5, "is_starred": starred}})
		_, _ = w.Write(resp)
	})

	p, err := c.ToggleBookmark(context.Background(), Project{ID: 5})
	require.NoError(t, err)
	assert.True(t, p.IsStarred)

	p, err = c.ToggleBookmark(context.Background(), *p)
	require.NoError(t, err)
	assert.False(t, p.IsStarred)

	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestHTTPClient_Threads(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"message_thread":{"id":3,"project":{"id":9,"name":"Dice"},"participant":{"name":"Bo"}},
				"messages":[{"id":1,"body":"hi","sender":{"id":2,"name":"Bo"},"created_at":1700000000}]}`))
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"message":{"id":2,"body":"hello","sender":{"id":1,"name":"Me"}}}`))
		}
	})

	th, err := c.FetchThread(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9), th.ProjectID)
	assert.Equal(t, "Bo", th.Participant)
	require.Len(t, th.Messages, 1)
	assert.Equal(t, "hi", th.Messages[0].Body)

	m, err := c.SendMessage(context.Background(), 3, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Body)

	updated := th.WithMessage(*m)
	assert.Len(t, updated.Messages, 2)
	assert.Len(t, th.Messages, 1)
}

func TestHTTPClient_FetchActivitiesAndProject(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/activities":
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			_, _ = w.Write([]byte(`{"activities":[{"id":1,"category":"backing","project":{"id":9,"name":"Dice"},"created_at":"2024-01-01T00:00:00Z"}]}`))
		case "/v1/projects/dice":
			_, _ = w.Write([]byte(`{"id":9,"name":"Dice","slug":"dice"}`))
		default:
			http.NotFound(w, r)
		}
	})

	acts, err := c.FetchActivities(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "Dice", acts[0].ProjectName)
	assert.Equal(t, 2024, acts[0].CreatedAt.Year())

	p, err := c.FetchProject(context.Background(), "dice")
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.ID)
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchProject(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockClient(t *testing.T) {
	m := &MockClient{
		ChangePasswordFn: func(context.Context, string, string) (string, error) { return "a@b.c", nil },
	}

	email, err := m.ChangePassword(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", email)

	_, err = m.FetchProject(context.Background(), "x")
	assert.ErrorContains(t, err, "FetchProject not configured")

	assert.Equal(t, 1, m.Calls("ChangePassword"))
	assert.Equal(t, 1, m.Calls("FetchProject"))
	assert.Equal(t, 0, m.Calls("SendMessage"))
}
