// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"pressroom/internal/models"
	"pressroom/internal/richtext"
	"pressroom/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	// synthetic ID counter when running in DryRun mode
	nextID uint
	slugs  map[string]struct{}
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		nextID: 1000,
		slugs:  make(map[string]struct{}),
	}
}

// backdate returns a realistic created_at within opts.MaxDays.
func (f *Factory) backdate() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return time.Now().UTC().Add(-back)
}

func (f *Factory) assignID(id *uint) {
	f.nextID++
	*id = f.nextID
}

// BuildUser constructs a profile without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	now := f.backdate()
	handle := strings.ToLower(f.faker.Username())
	user := &models.User{
		ExternalID: "seed|" + f.faker.UUID(),
		Name:       f.faker.Name(),
		Email:      f.faker.Email(),
		Avatar:     fmt.Sprintf("https://i.pravatar.cc/150?u=%s", handle),
		Bio:        f.faker.Sentence(10),
		Twitter:    handle,
		GitHub:     handle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample profile.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.assignID(&user.ID)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post owned by author without persisting it. The
// slug is derived from the title and made unique within this factory.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), ".")
	paragraphs := make([]string, f.faker.Number(2, 6))
	for i := range paragraphs {
		paragraphs[i] = f.faker.Paragraph(1, f.faker.Number(3, 8), 14, " ")
	}
	created := f.backdate()

	post := &models.Post{
		Title:       title,
		Description: f.faker.Sentence(16),
		Content:     models.RichText(richtext.Doc(paragraphs...)),
		Tags:        []string{strings.ToLower(f.faker.Word()), strings.ToLower(f.faker.Word())},
		Slug:        f.uniqueSlug(title),
		IsPublished: f.faker.Number(1, 100) <= 85,
		UserID:      author.ExternalID,
		ViewCount:   int64(f.faker.Number(0, 5000)),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if f.faker.Bool() {
		post.FollowupURL = f.faker.URL()
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

func (f *Factory) uniqueSlug(title string) string {
	base := validation.Slugify(title)
	if len(base) > 80 {
		base = strings.Trim(base[:80], "-")
	}
	if validation.ValidatePostSlug(base) != nil {
		base = "post"
	}
	slug := base
	for i := 2; ; i++ {
		if _, taken := f.slugs[slug]; !taken && validation.ValidatePostSlug(slug) == nil {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	f.slugs[slug] = struct{}{}
	return slug
}

// CreatePost constructs and persists a sample post for author.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if f.opts.DryRun {
		f.assignID(&post.ID)
		return post, nil
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a sample comment by author on post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	created := post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    author.ExternalID,
		Content:   f.faker.Sentence(f.faker.Number(4, 24)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	if f.faker.Number(1, 10) == 1 {
		comment.WasEdited = true
		comment.UpdatedAt = created.Add(time.Duration(f.faker.Number(1, 120)) * time.Minute)
	}
	for _, override := range overrides {
		override(comment)
	}
	if f.opts.DryRun {
		f.assignID(&comment.ID)
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateReply persists a sample reply by author on comment.
func (f *Factory) CreateReply(author *models.User, comment *models.Comment, overrides ...func(*models.Reply)) (*models.Reply, error) {
	created := comment.CreatedAt.Add(time.Duration(f.faker.Number(1, 24*60)) * time.Minute)
	reply := &models.Reply{
		CommentID: comment.ID,
		UserID:    author.ExternalID,
		Content:   f.faker.Sentence(f.faker.Number(3, 16)),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(reply)
	}
	if f.opts.DryRun {
		f.assignID(&reply.ID)
		return reply, nil
	}
	if err := f.db.Create(reply).Error; err != nil {
		return nil, err
	}
	return reply, nil
}

// CreateReaction persists user's emoji on a target. An existing identical
// reaction is left alone and reported as not created.
func (f *Factory) CreateReaction(user *models.User, target models.TargetType, targetID uint, emoji string) (bool, error) {
	if f.opts.DryRun {
		return true, nil
	}
	reaction := &models.Reaction{
		TargetType: target,
		TargetID:   targetID,
		UserID:     user.ExternalID,
		Emoji:      emoji,
		CreatedAt:  time.Now().UTC(),
	}
	res := f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "user_id"}, {Name: "emoji"}},
		DoNothing: true,
	}).Create(reaction)
	return res.RowsAffected > 0, res.Error
}

// pick returns a random element of items.
func pick[T any](f *Factory, items []T) T {
	return items[f.faker.Number(0, len(items)-1)]
}
