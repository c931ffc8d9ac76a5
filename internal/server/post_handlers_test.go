package server

import (
	"net/http"
	"net/url"
	"testing"

	"pressroom/internal/models"
	"pressroom/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCreatePost(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(http.MethodPost, "/api/admin/posts", map[string]interface{}{
		"title":        "  Hello, Wörld!  ",
		"description":  "first post",
		"content":      map[string]interface{}{"type": "doc"},
		"tags":         []string{" Go ", "intro"},
		"is_published": true,
	}, ts.admin())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var post models.Post
	ts.decode(raw, &post)
	assert.NotZero(t, post.ID)
	assert.Equal(t, "Hello, Wörld!", post.Title)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, []string{"go", "intro"}, post.Tags)
	assert.Equal(t, "auth0|admin", post.UserID)
	assert.JSONEq(t, `{"type":"doc"}`, string(post.Content))
}

func TestAdminCreatePost_Validation(t *testing.T) {
	ts := newTestServer(t)
	ts.fx.Post("auth0|admin", true)

	tests := []struct {
		name    string
		body    map[string]interface{}
		wantErr string
	}{
		{"blank title", map[string]interface{}{"title": "   "}, "title is required"},
		{"reserved slug", map[string]interface{}{"title": "x", "slug": "admin"}, "slug is reserved"},
		{"bad slug", map[string]interface{}{"title": "x", "slug": "Not A Slug"}, "slug must be lowercase"},
		{"duplicate slug", map[string]interface{}{"title": "Post 1", "slug": "post-1"}, "Slug is already in use"},
		{"bad url", map[string]interface{}{"title": "x", "followup_url": "nope"}, "followup_url must be a valid URL"},
		{"underivable slug", map[string]interface{}{"title": "!!"}, "slug must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := ts.do(http.MethodPost, "/api/admin/posts", tt.body, ts.admin())
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body models.ErrorResponse
			ts.decode(raw, &body)
			assert.Equal(t, models.CodeValidation, body.Code)
			assert.Contains(t, body.Error, tt.wantErr)
		})
	}
}

func TestAdminUpdatePost_Partial(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", false)

	resp, raw := ts.do(http.MethodPut, "/api/admin/posts/"+itoa(post.ID), map[string]interface{}{
		"slug":         "renamed",
		"is_published": true,
	}, ts.admin())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var updated models.Post
	ts.decode(raw, &updated)
	assert.Equal(t, "renamed", updated.Slug)
	assert.True(t, updated.IsPublished)
	assert.Equal(t, post.Title, updated.Title)

	resp, _ = ts.do(http.MethodGet, "/api/posts/slug/"+post.Slug, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(http.MethodGet, "/api/posts/slug/renamed", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(http.MethodPut, "/api/admin/posts/9999", map[string]interface{}{"title": "x"}, ts.admin())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminDeletePost_ReportsCascade(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)
	c := ts.fx.Comment(post.ID, "auth0|u1", "nice post")
	r := ts.fx.Reply(c.ID, "auth0|u2", "agreed")
	ts.fx.Reaction(models.TargetComment, c.ID, "auth0|u2", "👍")
	ts.fx.Reaction(models.TargetReply, r.ID, "auth0|u1", "🎉")

	resp, raw := ts.do(http.MethodDelete, "/api/admin/posts/"+itoa(post.ID), nil, ts.admin())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.JSONEq(t, `{"deleted":{"posts":1,"comments":1,"replies":1,"reactions":2}}`, string(raw))

	assert.Zero(t, testutil.Count(t, ts.db, &models.Comment{}))
	assert.Zero(t, testutil.Count(t, ts.db, &models.Reaction{}))

	resp, _ = ts.do(http.MethodDelete, "/api/admin/posts/"+itoa(post.ID), nil, ts.admin())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicPosts_HideDrafts(t *testing.T) {
	ts := newTestServer(t)
	ts.fx.User("auth0|admin", "Editor")
	published := ts.fx.Post("auth0|admin", true)
	draft := ts.fx.Post("auth0|admin", false)

	resp, raw := ts.do(http.MethodGet, "/api/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []models.Post
	ts.decode(raw, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, published.ID, posts[0].ID)

	resp, _ = ts.do(http.MethodGet, "/api/posts/slug/"+draft.Slug, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(http.MethodGet, "/api/posts/slug/"+draft.Slug, nil, ts.member("auth0|u1"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(http.MethodGet, "/api/posts/slug/"+draft.Slug, nil, ts.admin())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = ts.do(http.MethodGet, "/api/posts/slug/"+published.Slug, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var withAuthor struct {
		ID     uint `json:"id"`
		Author struct {
			ExternalID string `json:"external_id"`
			Name       string `json:"name"`
		} `json:"author"`
	}
	ts.decode(raw, &withAuthor)
	assert.Equal(t, published.ID, withAuthor.ID)
	assert.Equal(t, "Editor", withAuthor.Author.Name)

	path := "/api/users/" + url.PathEscape("auth0|admin") + "/posts"
	resp, raw = ts.do(http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ts.decode(raw, &posts)
	assert.Len(t, posts, 1)

	resp, raw = ts.do(http.MethodGet, path, nil, ts.admin())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ts.decode(raw, &posts)
	assert.Len(t, posts, 2)
}

func TestGetPosts_Pagination(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 5; i++ {
		ts.fx.Post("auth0|admin", true)
	}

	resp, raw := ts.do(http.MethodGet, "/api/posts?limit=2&offset=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []models.Post
	ts.decode(raw, &posts)
	assert.Len(t, posts, 2)

	resp, raw = ts.do(http.MethodGet, "/api/posts?offset=10", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestSearchPosts_DatabaseFallback(t *testing.T) {
	ts := newTestServer(t)
	ts.fx.Post("auth0|admin", true)
	ts.fx.Post("auth0|admin", false)

	resp, raw := ts.do(http.MethodGet, "/api/posts/search?q=post", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []models.Post
	ts.decode(raw, &posts)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].IsPublished)

	resp, _ = ts.do(http.MethodGet, "/api/posts/search?q=%20", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecordView(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)

	resp, _ := ts.do(http.MethodPost, "/api/posts/"+itoa(post.ID)+"/views", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(http.MethodPost, "/api/posts/"+itoa(post.ID)+"/views", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var stored models.Post
	require.NoError(t, ts.db.First(&stored, post.ID).Error)
	assert.EqualValues(t, 2, stored.ViewCount)

	resp, _ = ts.do(http.MethodPost, "/api/posts/9999/views", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminPostStats(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)
	c := ts.fx.Comment(post.ID, "auth0|u1", "nice post")
	ts.fx.Reply(c.ID, "auth0|u2", "agreed")
	ts.fx.Reply(c.ID, "auth0|u3", "same")
	ts.fx.Post("auth0|admin", false)

	resp, raw := ts.do(http.MethodGet, "/api/admin/posts/stats", nil, ts.admin())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats []struct {
		ID           uint  `json:"id"`
		CommentCount int64 `json:"comment_count"`
		ReplyCount   int64 `json:"reply_count"`
	}
	ts.decode(raw, &stats)
	require.Len(t, stats, 2)
	byID := map[uint][2]int64{}
	for _, s := range stats {
		byID[s.ID] = [2]int64{s.CommentCount, s.ReplyCount}
	}
	assert.Equal(t, [2]int64{1, 2}, byID[post.ID])

	resp, _ = ts.do(http.MethodGet, "/api/admin/posts/stats", nil, ts.member("auth0|u1"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
