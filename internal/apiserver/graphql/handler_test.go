package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blog-graphql/internal/apiserver/loader"
	"blog-graphql/internal/testutil"
	"blog-graphql/pkg/dataloader"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

type testServer struct {
	handler *Handler
	stats   []map[string]dataloader.Stats
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, dataloader.Config{Wait: 50 * time.Millisecond})
}

func newTestServerWith(t *testing.T, cfg dataloader.Config) *testServer {
	t.Helper()
	store := testutil.NewStore(t)

	ts := &testServer{}
	ts.handler = NewHandler(store, DefaultConfig(), loader.Options{Config: cfg}, nil)
	ts.handler.OnComplete(func(s map[string]dataloader.Stats) {
		ts.stats = append(ts.stats, s)
	})
	return ts
}

func (ts *testServer) do(t *testing.T, query string, variables map[string]interface{}) gqlResponse {
	t.Helper()
	body, err := json.Marshal(Request{Query: query, Variables: variables})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

const createUserMutation = `mutation($input: CreateUserInput!) { createUser(input: $input) { id username } }`

const createPostMutation = `mutation($input: CreatePostInput!) { createPost(input: $input) { id slug authorId } }`

func (ts *testServer) createUser(t *testing.T, name string) string {
	t.Helper()
	resp := ts.do(t, createUserMutation, map[string]interface{}{
		"input": map[string]interface{}{"username": name, "email": name + "@example.com", "password": "pw"},
	})
	require.Empty(t, resp.Errors)
	var data struct {
		CreateUser struct{ ID string } `json:"createUser"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.CreateUser.ID
}

func (ts *testServer) createPost(t *testing.T, authorID, title string) {
	t.Helper()
	resp := ts.do(t, createPostMutation, map[string]interface{}{
		"input": map[string]interface{}{"authorId": authorID, "title": title, "body": title},
	})
	require.Empty(t, resp.Errors)
}

func TestAPIVersion(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, `{ apiVersion }`, nil)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"apiVersion":"1.0"}`, string(resp.Data))
}

func TestUsersWithPosts_NegativeWaitStillFlushes(t *testing.T) {
	ts := newTestServerWith(t, dataloader.Config{Wait: -1})
	alice := ts.createUser(t, "alice")
	ts.createUser(t, "bob")
	ts.createPost(t, alice, "a1")
	ts.stats = nil

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	body, err := json.Marshal(Request{Query: `{ users { posts { title } } }`})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)).WithContext(ctx)

	start := time.Now()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Less(t, time.Since(start), time.Second)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Errors)
	assert.Contains(t, string(resp.Data), "a1")
	require.Len(t, ts.stats, 1)
	assert.Equal(t, int64(1), ts.stats[0][loader.NamePosts].Batches)
}

func TestUsersWithPosts_Batched(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")
	bob := ts.createUser(t, "bob")
	ts.createUser(t, "carol")
	ts.createPost(t, alice, "a1")
	ts.createPost(t, alice, "a2")
	ts.createPost(t, bob, "b1")
	ts.stats = nil

	resp := ts.do(t, `{ users { username posts { title } } }`, nil)
	require.Empty(t, resp.Errors)

	var data struct {
		Users []struct {
			Username string
			Posts    []struct{ Title string }
		}
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data.Users, 3)

	byName := map[string][]string{}
	for _, u := range data.Users {
		titles := []string{}
		for _, p := range u.Posts {
			titles = append(titles, p.Title)
		}
		byName[u.Username] = titles
	}
	assert.Equal(t, []string{"a1", "a2"}, byName["alice"])
	assert.Equal(t, []string{"b1"}, byName["bob"])
	assert.Equal(t, []string{}, byName["carol"])

	require.Len(t, ts.stats, 1)
	assert.Equal(t, int64(1), ts.stats[0][loader.NamePosts].Batches)
	assert.Equal(t, int64(3), ts.stats[0][loader.NamePosts].Loads)
}

func TestPostsWithAuthor(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")
	ts.createPost(t, alice, "a1")
	ts.createPost(t, alice, "a2")
	ts.stats = nil

	resp := ts.do(t, `{ posts { title author { username } } }`, nil)
	require.Empty(t, resp.Errors)
	assert.Equal(t, 2, strings.Count(string(resp.Data), `"username":"alice"`))

	require.Len(t, ts.stats, 1)
	users := ts.stats[0][loader.NameUsers]
	assert.Equal(t, int64(2), users.Loads)
	assert.Equal(t, int64(1), users.Batches)
}

func TestUserQuery(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")

	resp := ts.do(t, `query($id: ID!) { user(id: $id) { username email bio } }`, map[string]interface{}{"id": alice})
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"user":{"username":"alice","email":"alice@example.com","bio":null}}`, string(resp.Data))
}

func TestUserQuery_NotFound(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.NewString()

	resp := ts.do(t, `query($id: ID!) { user(id: $id) { username } }`, map[string]interface{}{"id": id})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "User with id "+id+" not found", resp.Errors[0].Message)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
}

func TestUserQuery_InvalidID(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, `{ user(id: "nope") { username } }`, nil)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "INVALID_FIELD", resp.Errors[0].Extensions["code"])
}

func TestCreateUser_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	resp := ts.do(t, createUserMutation, map[string]interface{}{
		"input": map[string]interface{}{"username": "alice2", "email": "alice@example.com", "password": "pw"},
	})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Username or email address already in use.", resp.Errors[0].Message)
	assert.Equal(t, "INVALID_FIELD", resp.Errors[0].Extensions["code"])
}

func TestCreatePost_MissingAuthor(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.NewString()

	resp := ts.do(t, createPostMutation, map[string]interface{}{
		"input": map[string]interface{}{"authorId": id, "title": "t", "body": "b"},
	})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Author with id "+id+" does not exist.", resp.Errors[0].Message)
}

func TestCreatePost_SlugConflict(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.createUser(t, "alice")
	input := map[string]interface{}{"authorId": alice, "slug": "hello", "title": "t", "body": "b"}

	resp := ts.do(t, createPostMutation, map[string]interface{}{"input": input})
	require.Empty(t, resp.Errors)
	assert.Contains(t, string(resp.Data), `"slug":"hello"`)

	resp = ts.do(t, createPostMutation, map[string]interface{}{"input": input})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Slug hello already exists.", resp.Errors[0].Message)
}

func TestServeHTTP_BadRequest(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{`{not json`, `{"query": ""}`} {
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestGraphiQL(t *testing.T) {
	rec := httptest.NewRecorder()
	GraphiQL("/graphql")(rec, httptest.NewRequest(http.MethodGet, "/graphiql", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "GraphiQL.createFetcher")
	assert.Contains(t, rec.Body.String(), "graphql")
	assert.NotContains(t, rec.Body.String(), "{{")
}
