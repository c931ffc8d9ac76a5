package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pressroom/internal/models"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskJSON = `{"taskUid":1,"indexUid":"pressroom_posts","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2024-01-01T00:00:00Z"}`

// fakeMeili answers the subset of the Meilisearch API the index uses.
type fakeMeili struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	healthy  atomic.Bool
}

func newFakeMeili(t *testing.T, healthy bool) (*fakeMeili, *httptest.Server) {
	f := &fakeMeili{bodies: make(map[string]string)}
	f.healthy.Store(healthy)
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeMeili) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.requests = append(f.requests, key)
	f.bodies[key] = string(body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/health":
		if !f.healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"down","code":"unavailable","type":"system","link":""}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"available"}`))
	case r.URL.Path == "/multi-search":
		_, _ = w.Write([]byte(`{"results":[{"indexUid":"pressroom_posts","hits":[{"id":3},{"id":"5"},{"title":"no id"}],"query":"go","processingTimeMs":1,"limit":20,"offset":0,"estimatedTotalHits":2}]}`))
	default:
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(taskJSON))
	}
}

func (f *fakeMeili) saw(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == key {
			return true
		}
	}
	return false
}

func (f *fakeMeili) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func TestDocumentFor(t *testing.T) {
	post := &models.Post{
		ID:          9,
		Slug:        "hello",
		Title:       "Hello",
		Description: "First post",
		Content:     models.RichText(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Hello there"}]}]}`),
		IsPublished: true,
		CreatedAt:   time.Unix(1700000000, 0),
	}

	doc := DocumentFor(post)
	assert.EqualValues(t, 9, doc.ID)
	assert.Equal(t, "Hello there", doc.Body)
	assert.Equal(t, []string{}, doc.Tags)
	assert.True(t, doc.Published)
	assert.EqualValues(t, 1700000000, doc.CreatedAt)
}

func TestDecodeID(t *testing.T) {
	tests := []struct {
		name string
		hit  meili.Hit
		id   uint
		ok   bool
	}{
		{name: "number", hit: meili.Hit{"id": json.RawMessage(`12`)}, id: 12, ok: true},
		{name: "string", hit: meili.Hit{"id": json.RawMessage(`"7"`)}, id: 7, ok: true},
		{name: "zero", hit: meili.Hit{"id": json.RawMessage(`0`)}},
		{name: "garbage", hit: meili.Hit{"id": json.RawMessage(`"x"`)}},
		{name: "missing", hit: meili.Hit{"title": json.RawMessage(`"t"`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := decodeID(tt.hit)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestMeili_ConfiguresIndexAndSearches(t *testing.T) {
	fake, srv := newFakeMeili(t, true)
	m := newMeili(srv.URL, "key", time.Hour)
	defer m.Close()

	require.True(t, m.Healthy())
	assert.True(t, fake.saw("POST /indexes"))
	assert.True(t, fake.saw("PUT /indexes/pressroom_posts/settings/filterable-attributes"))

	ids, err := m.SearchPostIDs(context.Background(), "go", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 5}, ids)

	body := fake.body("POST /multi-search")
	assert.Contains(t, body, `"published = true"`)
	assert.Contains(t, body, `"q":"go"`)
}

func TestMeili_IndexAndDeletePost(t *testing.T) {
	fake, srv := newFakeMeili(t, true)
	m := newMeili(srv.URL, "", time.Hour)
	defer m.Close()

	require.NoError(t, m.IndexPost(context.Background(), &models.Post{ID: 4, Title: "Indexed", IsPublished: true}))
	assert.True(t, strings.Contains(fake.body("POST /indexes/pressroom_posts/documents"), `"title":"Indexed"`))

	require.NoError(t, m.DeletePost(context.Background(), 4))
	assert.True(t, fake.saw("DELETE /indexes/pressroom_posts/documents/4"))
}

func TestMeili_UnhealthyUntilRecovery(t *testing.T) {
	fake, srv := newFakeMeili(t, false)
	m := newMeili(srv.URL, "", 10*time.Millisecond)
	defer m.Close()

	assert.False(t, m.Healthy())
	_, err := m.SearchPostIDs(context.Background(), "go", 20, 0)
	assert.ErrorIs(t, err, ErrUnhealthy)

	fake.healthy.Store(true)
	assert.Eventually(t, m.Healthy, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return fake.saw("POST /indexes") }, time.Second, 10*time.Millisecond)
}

func TestMeili_CloseIsIdempotent(t *testing.T) {
	_, srv := newFakeMeili(t, true)
	m := newMeili(srv.URL, "", time.Hour)
	m.Close()
	m.Close()
}
