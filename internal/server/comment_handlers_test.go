package server

import (
	"net/http"
	"testing"

	"pressroom/internal/models"
	"pressroom/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type threadJSON struct {
	ID      uint   `json:"id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
	Author  struct {
		Name string `json:"name"`
	} `json:"author"`
	Replies []struct {
		ID      uint   `json:"id"`
		Content string `json:"content"`
	} `json:"replies"`
}

func TestCommentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.fx.User("auth0|u1", "Ada")
	post := ts.fx.Post("auth0|admin", true)
	ada := ts.member("auth0|u1")

	resp, raw := ts.do(http.MethodPost, "/api/posts/"+itoa(post.ID)+"/comments",
		map[string]string{"content": "  first!  "}, ada)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var comment models.Comment
	ts.decode(raw, &comment)
	assert.Equal(t, "first!", comment.Content)
	assert.Equal(t, "auth0|u1", comment.UserID)
	assert.False(t, comment.WasEdited)

	resp, raw = ts.do(http.MethodPost, "/api/comments/"+itoa(comment.ID)+"/replies",
		map[string]string{"content": "agreed"}, ts.member("auth0|u2"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var reply models.Reply
	ts.decode(raw, &reply)
	assert.Equal(t, comment.ID, reply.CommentID)

	resp, raw = ts.do(http.MethodPut, "/api/comments/"+itoa(comment.ID),
		map[string]string{"content": "first! (edited)"}, ada)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	ts.decode(raw, &comment)
	assert.True(t, comment.WasEdited)

	resp, raw = ts.do(http.MethodGet, "/api/posts/"+itoa(post.ID)+"/comments", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var threads []threadJSON
	ts.decode(raw, &threads)
	require.Len(t, threads, 1)
	assert.Equal(t, "first! (edited)", threads[0].Content)
	assert.Equal(t, "Ada", threads[0].Author.Name)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, reply.ID, threads[0].Replies[0].ID)

	resp, raw = ts.do(http.MethodGet, "/api/comments/"+itoa(comment.ID)+"/replies", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"content":"agreed"`)
}

func TestComments_EmptyThreadIsArray(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)

	resp, raw := ts.do(http.MethodGet, "/api/posts/"+itoa(post.ID)+"/comments", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestCreateComment_Errors(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)
	path := "/api/posts/" + itoa(post.ID) + "/comments"

	resp, _ := ts.do(http.MethodPost, path, map[string]string{"content": "hi"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw := ts.do(http.MethodPost, path, map[string]string{"content": " \n "}, ts.member("auth0|u1"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "content is required")

	resp, _ = ts.do(http.MethodPost, "/api/posts/9999/comments", map[string]string{"content": "hi"}, ts.member("auth0|u1"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, "/api/comments/9999/replies", map[string]string{"content": "hi"}, ts.member("auth0|u1"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Zero(t, testutil.Count(t, ts.db, &models.Comment{}))
}

func TestCommentOwnership(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)
	c := ts.fx.Comment(post.ID, "auth0|u1", "mine")
	r := ts.fx.Reply(c.ID, "auth0|u1", "also mine")
	other := ts.member("auth0|u2")

	resp, raw := ts.do(http.MethodPut, "/api/comments/"+itoa(c.ID), map[string]string{"content": "hijack"}, other)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(raw), models.CodeUnauthorized)

	resp, _ = ts.do(http.MethodDelete, "/api/comments/"+itoa(c.ID), nil, other)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(http.MethodPut, "/api/replies/"+itoa(r.ID), map[string]string{"content": "hijack"}, other)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(http.MethodDelete, "/api/replies/"+itoa(r.ID), nil, other)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = ts.do(http.MethodPut, "/api/replies/"+itoa(r.ID), map[string]string{"content": "moderated"}, ts.admin())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), `"was_edited":true`)
}

func TestDeleteComment_Cascades(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)
	c := ts.fx.Comment(post.ID, "auth0|u1", "root")
	r1 := ts.fx.Reply(c.ID, "auth0|u2", "one")
	ts.fx.Reply(c.ID, "auth0|u3", "two")
	ts.fx.Reaction(models.TargetComment, c.ID, "auth0|u2", "👍")
	ts.fx.Reaction(models.TargetReply, r1.ID, "auth0|u1", "❤️")
	keep := ts.fx.Comment(post.ID, "auth0|u2", "unrelated")

	resp, raw := ts.do(http.MethodDelete, "/api/comments/"+itoa(c.ID), nil, ts.member("auth0|u1"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.JSONEq(t, `{"deleted":{"posts":0,"comments":1,"replies":2,"reactions":2}}`, string(raw))

	assert.EqualValues(t, 1, testutil.Count(t, ts.db, &models.Comment{}))
	assert.Zero(t, testutil.Count(t, ts.db, &models.Reply{}))
	assert.Zero(t, testutil.Count(t, ts.db, &models.Reaction{}))

	resp, _ = ts.do(http.MethodGet, "/api/comments/"+itoa(keep.ID)+"/replies", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteReply(t *testing.T) {
	ts := newTestServer(t)
	post := ts.fx.Post("auth0|admin", true)
	c := ts.fx.Comment(post.ID, "auth0|u1", "root")
	r := ts.fx.Reply(c.ID, "auth0|u2", "reply")
	ts.fx.Reaction(models.TargetReply, r.ID, "auth0|u1", "😂")

	resp, raw := ts.do(http.MethodDelete, "/api/replies/"+itoa(r.ID), nil, ts.member("auth0|u2"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.JSONEq(t, `{"deleted":{"posts":0,"comments":0,"replies":1,"reactions":1}}`, string(raw))

	resp, _ = ts.do(http.MethodDelete, "/api/replies/"+itoa(r.ID), nil, ts.member("auth0|u2"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
