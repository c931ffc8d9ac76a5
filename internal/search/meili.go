// Package search keeps a Meilisearch index of published posts.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/richtext"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	// IndexPosts is the Meilisearch index uid.
	IndexPosts = "pressroom_posts"

	defaultHealthInterval = 10 * time.Second
)

// ErrUnhealthy is returned while Meilisearch is unreachable.
var ErrUnhealthy = errors.New("meilisearch unhealthy")

// Document is the indexed projection of a post.
type Document struct {
	ID          uint     `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	CreatedAt   int64    `json:"created_at"`
}

// DocumentFor projects post for indexing. The body is the plain text of
// the post's rich text content.
func DocumentFor(post *models.Post) Document {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	return Document{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		Description: post.Description,
		Body:        richtext.PlainText(post.Content),
		Tags:        tags,
		Published:   post.IsPublished,
		CreatedAt:   post.CreatedAt.Unix(),
	}
}

// Meili indexes and searches posts through Meilisearch.
type Meili struct {
	client   meili.ServiceManager
	healthy  atomic.Bool
	interval time.Duration
	done     chan struct{}
	closed   atomic.Bool
}

// NewMeili creates a Meilisearch client and configures the posts index.
// An unreachable server leaves the index unhealthy; a background loop
// reconfigures it once the server answers.
func NewMeili(url, apiKey string) *Meili {
	return newMeili(url, apiKey, defaultHealthInterval)
}

func newMeili(url, apiKey string, interval time.Duration) *Meili {
	m := &Meili{
		client:   meili.New(url, meili.WithAPIKey(apiKey)),
		interval: interval,
		done:     make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		middleware.Logger.Warn("meilisearch unavailable", slog.String("url", url), slog.String("error", err.Error()))
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        IndexPosts,
		PrimaryKey: "id",
	}); err != nil {
		middleware.Logger.Debug("meilisearch create index", slog.String("index", IndexPosts), slog.String("error", err.Error()))
	}

	index := m.client.Index(IndexPosts)
	filterable := []interface{}{"published", "tags"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		middleware.Logger.Warn("meilisearch filterable attributes", slog.String("error", err.Error()))
	}
	searchable := []string{"title", "description", "tags", "body"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		middleware.Logger.Warn("meilisearch searchable attributes", slog.String("error", err.Error()))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				middleware.Logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	if m.closed.CompareAndSwap(false, true) {
		close(m.done)
	}
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// IndexPost adds or replaces post in the index.
func (m *Meili) IndexPost(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	docs := []Document{DocumentFor(post)}
	_, err := m.client.Index(IndexPosts).AddDocuments(docs, nil)
	return err
}

// DeletePost removes a post from the index.
func (m *Meili) DeletePost(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.client.Index(IndexPosts).DeleteDocument(strconv.FormatUint(uint64(id), 10), nil)
	return err
}

// SearchPostIDs returns the ids of published posts matching query in
// relevance order.
func (m *Meili) SearchPostIDs(ctx context.Context, query string, limit, offset int) ([]uint, error) {
	if !m.healthy.Load() {
		return nil, ErrUnhealthy
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID:             IndexPosts,
			Query:                query,
			Limit:                int64(limit),
			Offset:               int64(offset),
			Filter:               "published = true",
			AttributesToRetrieve: []string{"id"},
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var ids []uint
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			if id, ok := decodeID(hit); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// decodeID reads the primary key of a hit, which Meilisearch returns as
// the JSON type it was indexed with.
func decodeID(hit meili.Hit) (uint, bool) {
	raw, ok := hit["id"]
	if !ok {
		return 0, false
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return uint(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil && n > 0 {
			return uint(n), true
		}
	}
	return 0, false
}
