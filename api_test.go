package blogit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var initialBlogs = []Blog{
	{Title: "React patterns", Author: "Michael Chan", URL: "https://reactpatterns.com/", Likes: 7},
	{Title: "Go To Statement Considered Harmful", Author: "Edsger W. Dijkstra", URL: "http://www.u.arizona.edu/~rubinson/copyright_violations/Go_To_Considered_Harmful.html", Likes: 5},
}

type apiFixture struct {
	t     *testing.T
	app   *App
	store *Store
	root  User
	token string
}

func setupAPI(t *testing.T, opts ...func(*Config)) *apiFixture {
	t.Helper()
	store := setupTestStore(t)
	ctx := context.Background()

	cfg := Config{Secret: "sekret", RateLimit: 1000, RateBurst: 1000}
	for _, o := range opts {
		o(&cfg)
	}
	app := New(cfg, WithStore(store))
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })

	u, err := NewUser("root", "Superuser", "sekret")
	require.NoError(t, err)
	root, err := store.CreateUser(ctx, u)
	require.NoError(t, err)
	token, err := app.Tokens.Issue(root)
	require.NoError(t, err)

	for _, b := range initialBlogs {
		_, err := store.CreateBlog(ctx, b)
		require.NoError(t, err)
	}

	return &apiFixture{t: t, app: app, store: store, root: root, token: token}
}

func (f *apiFixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.app.Echo.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) blogsInDb() []Blog {
	f.t.Helper()
	blogs, err := f.store.ListBlogs(context.Background())
	require.NoError(f.t, err)
	return blogs
}

func (f *apiFixture) usersInDb() []User {
	f.t.Helper()
	users, err := f.store.ListUsers(context.Background())
	require.NoError(f.t, err)
	return users
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func titles(blogs []Blog) []string {
	out := make([]string, len(blogs))
	for i, b := range blogs {
		out[i] = b.Title
	}
	return out
}

func TestAllBlogsAreReturnedAsJSON(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodGet, "/api/blogs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var blogs []Blog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blogs))
	assert.Len(t, blogs, len(initialBlogs))
}

func TestIdentifierIsNamedID(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodGet, "/api/blogs", nil, "")
	var blogs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blogs))
	require.NotEmpty(t, blogs)
	for _, b := range blogs {
		assert.NotEmpty(t, b["id"])
		assert.NotContains(t, b, "__v")
		assert.NotContains(t, b, "seq")
	}
}

func TestGetSingleBlog(t *testing.T) {
	f := setupAPI(t)
	first := f.blogsInDb()[0]

	rec := f.do(http.MethodGet, "/api/blogs/"+first.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Blog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, first.Title, got.Title)

	rec = f.do(http.MethodGet, "/api/blogs/8f7a3c1e-2b4d-4e6f-9a0b-1c2d3e4f5a6b", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddingBlogIncreasesCount(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodPost, "/api/blogs", map[string]any{
		"author": "Martin Fowler",
		"title":  "Microservices Resource Guide",
		"url":    "https://martinfowler.com/microservices/",
		"likes":  3,
	}, f.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var created Blog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.User)
	assert.Equal(t, "root", created.User.Username)

	blogsAtEnd := f.blogsInDb()
	assert.Len(t, blogsAtEnd, len(initialBlogs)+1)
	assert.Contains(t, titles(blogsAtEnd), "Microservices Resource Guide")

	users := f.usersInDb()
	require.Len(t, users, 1)
	require.Len(t, users[0].Blogs, 1)
	assert.Equal(t, "Microservices Resource Guide", users[0].Blogs[0].Title)
}

func TestLikesDefaultToZero(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodPost, "/api/blogs", map[string]any{
		"author": "Martin Fowler",
		"title":  "Microservices Resource Guide",
		"url":    "https://martinfowler.com/microservices/",
	}, f.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, b := range f.blogsInDb() {
		if b.Title == "Microservices Resource Guide" {
			assert.Equal(t, 0, b.Likes)
			return
		}
	}
	t.Fatal("created blog not found")
}

func TestBlogWithoutTitleOrURLIsRejected(t *testing.T) {
	f := setupAPI(t)

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"no title", map[string]any{"author": "Martin Fowler", "url": "https://martinfowler.com/microservices/", "likes": 3}, "Path `title` is required."},
		{"no url", map[string]any{"author": "Martin Fowler", "title": "Microservices Resource Guide", "likes": 3}, "Path `url` is required."},
	}
	for _, tt := range tests {
		rec := f.do(http.MethodPost, "/api/blogs", tt.body, f.token)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.name)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json", tt.name)
		assert.Contains(t, errorMessage(t, rec), tt.want, tt.name)
	}
	assert.Len(t, f.blogsInDb(), len(initialBlogs))
}

func TestAddingBlogRequiresToken(t *testing.T) {
	f := setupAPI(t)
	body := map[string]any{"title": "t", "url": "u"}

	rec := f.do(http.MethodPost, "/api/blogs", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token missing or invalid", errorMessage(t, rec))

	rec = f.do(http.MethodPost, "/api/blogs", body, "123456789")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorMessage(t, rec))

	assert.Len(t, f.blogsInDb(), len(initialBlogs))
}

func TestDeleteSucceedsWithValidID(t *testing.T) {
	f := setupAPI(t)
	blogToDelete := f.blogsInDb()[0]

	rec := f.do(http.MethodDelete, "/api/blogs/"+blogToDelete.ID, nil, f.token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	blogsAtEnd := f.blogsInDb()
	assert.Len(t, blogsAtEnd, len(initialBlogs)-1)
	assert.NotContains(t, titles(blogsAtEnd), blogToDelete.Title)
}

func TestDeleteFailsWithInvalidID(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodDelete, "/api/blogs/1", nil, f.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "malformatted id", errorMessage(t, rec))
	assert.Len(t, f.blogsInDb(), len(initialBlogs))
}

func TestDeleteFailsWithInvalidToken(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodDelete, "/api/blogs/1", nil, "123456789")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "invalid token", errorMessage(t, rec))
	assert.Len(t, f.blogsInDb(), len(initialBlogs))
}

func TestDeleteOfOthersBlogIsForbidden(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodPost, "/api/blogs", map[string]any{"title": "mine", "url": "u"}, f.token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Blog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	u, err := NewUser("other", "Other", "salainen")
	require.NoError(t, err)
	other, err := f.store.CreateUser(context.Background(), u)
	require.NoError(t, err)
	otherToken, err := f.app.Tokens.Issue(other)
	require.NoError(t, err)

	rec = f.do(http.MethodDelete, "/api/blogs/"+created.ID, nil, otherToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, f.blogsInDb(), len(initialBlogs)+1)

	rec = f.do(http.MethodDelete, "/api/blogs/"+created.ID, nil, f.token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateSucceedsWithValidParams(t *testing.T) {
	f := setupAPI(t)
	blogToModify := f.blogsInDb()[0]
	likes := blogToModify.Likes

	rec := f.do(http.MethodPut, "/api/blogs/"+blogToModify.ID, map[string]any{
		"title":  blogToModify.Title,
		"author": blogToModify.Author,
		"url":    blogToModify.URL,
		"likes":  likes + 1,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	assert.Equal(t, likes+1, f.blogsInDb()[0].Likes)
}

func TestUpdateUnknownOrMalformedID(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodPut, "/api/blogs/8f7a3c1e-2b4d-4e6f-9a0b-1c2d3e4f5a6b", map[string]any{"likes": 1}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/api/blogs/1", map[string]any{"likes": 1}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformatted id", errorMessage(t, rec))
}

func TestUserCreationSucceedsWithFreshUsername(t *testing.T) {
	f := setupAPI(t)
	usersAtStart := f.usersInDb()

	rec := f.do(http.MethodPost, "/api/users", map[string]any{
		"username": "mluukkai",
		"name":     "Matti Luukkainen",
		"password": "salainen",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.NotContains(t, rec.Body.String(), "salainen")
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	usersAtEnd := f.usersInDb()
	assert.Len(t, usersAtEnd, len(usersAtStart)+1)
	var usernames []string
	for _, u := range usersAtEnd {
		usernames = append(usernames, u.Username)
	}
	assert.Contains(t, usernames, "mluukkai")
}

func TestUserCreationFailures(t *testing.T) {
	f := setupAPI(t)

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"username taken", map[string]any{"username": "root", "name": "Superuser", "password": "salainen"}, "`username` to be unique"},
		{"password too short", map[string]any{"username": "hellas", "name": "Arto Hellas", "password": "sa"}, "pasword minimum length 3"},
		{"password missing", map[string]any{"username": "hellas", "name": "Arto Hellas"}, "pasword minimum length 3"},
		{"username too short", map[string]any{"username": "he", "name": "Arto Hellas", "password": "salainen"}, "is shorter than the minimum allowed length"},
	}
	for _, tt := range tests {
		usersAtStart := f.usersInDb()
		rec := f.do(http.MethodPost, "/api/users", tt.body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.name)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json", tt.name)
		assert.Contains(t, errorMessage(t, rec), tt.want, tt.name)
		assert.Len(t, f.usersInDb(), len(usersAtStart), tt.name)
	}
}

func TestListUsersHidesPasswordHash(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodGet, "/api/users", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0]["username"])
	assert.NotContains(t, users[0], "passwordHash")
	assert.NotContains(t, users[0], "PasswordHash")
	assert.Equal(t, []any{}, users[0]["blogs"])
}

func TestLoginIssuesUsableToken(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodPost, "/api/login", map[string]any{"username": "root", "password": "sekret"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "root", resp.Username)
	assert.Equal(t, "Superuser", resp.Name)
	require.NotEmpty(t, resp.Token)

	rec = f.do(http.MethodPost, "/api/blogs", map[string]any{"title": "via login", "url": "u"}, resp.Token)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodPost, "/api/login", map[string]any{"username": "root", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", errorMessage(t, rec))

	rec = f.do(http.MethodPost, "/api/login", map[string]any{"username": "nobody", "password": "sekret"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	f := setupAPI(t, func(c *Config) { c.LoginAttempts = 2 })
	bad := map[string]any{"username": "root", "password": "wrong"}

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/login", bad, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/login", bad, "").Code)

	rec := f.do(http.MethodPost, "/api/login", map[string]any{"username": "root", "password": "sekret"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAPIIsRateLimitedPerIP(t *testing.T) {
	f := setupAPI(t, func(c *Config) {
		c.RateLimit = 1
		c.RateBurst = 1
	})

	rec := f.do(http.MethodGet, "/api/blogs", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/blogs", nil, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests", errorMessage(t, rec))

	// Routes outside /api are not throttled.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", nil, "").Code)
	}
}

func TestAPIRateLimitDisabled(t *testing.T) {
	f := setupAPI(t, func(c *Config) { c.RateLimit = -1 })

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/blogs", nil, "").Code)
	}
}

func TestBlogStats(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodGet, "/api/blogs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"blogs": 2,
		"totalLikes": 12,
		"favoriteBlog": {"title": "React patterns", "author": "Michael Chan", "likes": 7},
		"mostBlogs": {"author": "Michael Chan", "blogs": 1},
		"mostLikes": {"author": "Michael Chan", "likes": 7}
	}`, rec.Body.String())

	// Writes invalidate the cached list the stats are computed from.
	rec = f.do(http.MethodPost, "/api/blogs", map[string]any{
		"title": "Canonical string reduction", "author": "Edsger W. Dijkstra", "url": "u", "likes": 12,
	}, f.token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/blogs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 24, stats.TotalLikes)
	assert.Equal(t, "Canonical string reduction", stats.FavoriteBlog.Title)
	require.NotNil(t, stats.MostBlogs)
	assert.Equal(t, AuthorBlogs{Author: "Edsger W. Dijkstra", Blogs: 2}, *stats.MostBlogs)
	require.NotNil(t, stats.MostLikes)
	assert.Equal(t, AuthorLikes{Author: "Edsger W. Dijkstra", Likes: 17}, *stats.MostLikes)
}

func TestBlogStatsOnEmptyList(t *testing.T) {
	f := setupAPI(t)
	for _, b := range f.blogsInDb() {
		require.NoError(t, f.store.DeleteBlog(context.Background(), b.ID))
	}
	f.app.Cache.Invalidate()

	rec := f.do(http.MethodGet, "/api/blogs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"blogs":0,"totalLikes":0,"favoriteBlog":{},"mostBlogs":null,"mostLikes":null}`, rec.Body.String())
}

func TestFeedListsBlogs(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodGet, "/api/blogs/feed.xml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, "<title>React patterns</title>")
	assert.Contains(t, body, "<link>https://reactpatterns.com/</link>")
	assert.Contains(t, body, "Michael Chan, 7 likes")
}

func TestUnknownEndpoint(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodGet, "/api/nothing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found: /api/nothing", errorMessage(t, rec))
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.do(http.MethodGet, "/api/blogs", nil, "")
	rec = f.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blogit_blogs_stored 2")
	assert.Contains(t, rec.Body.String(), "blogit_echo_requests_total")
}

func TestCORSHeaders(t *testing.T) {
	f := setupAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/blogs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.app.Echo.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
