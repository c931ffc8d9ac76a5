package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pressroom/internal/models"
	"pressroom/internal/richtext"
	"pressroom/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixture is a hand-written data set loaded from YAML.
//
//	users:
//	  - id: auth0|ada
//	    name: Ada
//	posts:
//	  - slug: hello
//	    title: Hello
//	    author: auth0|ada
//	    published: true
//	    body: ["First paragraph.", "Second paragraph."]
//	    comments:
//	      - author: auth0|ada
//	        content: first!
//	        reactions: [{user: auth0|ada, emoji: "👍"}]
//	        replies:
//	          - author: auth0|ada
//	            content: agreed
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
	Posts []FixturePost `yaml:"posts"`
}

type FixtureUser struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Avatar string `yaml:"avatar"`
	Bio    string `yaml:"bio"`
}

type FixturePost struct {
	Slug        string           `yaml:"slug"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Author      string           `yaml:"author"`
	Published   bool             `yaml:"published"`
	Tags        []string         `yaml:"tags"`
	Body        []string         `yaml:"body"`
	Comments    []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	Author    string            `yaml:"author"`
	Content   string            `yaml:"content"`
	Reactions []FixtureReaction `yaml:"reactions"`
	Replies   []FixtureReply    `yaml:"replies"`
}

type FixtureReply struct {
	Author    string            `yaml:"author"`
	Content   string            `yaml:"content"`
	Reactions []FixtureReaction `yaml:"reactions"`
}

type FixtureReaction struct {
	User  string `yaml:"user"`
	Emoji string `yaml:"emoji"`
}

// LoadFixture decodes and checks a YAML fixture.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fx.check(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) check() error {
	users := make(map[string]struct{}, len(fx.Users))
	for i, u := range fx.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
		users[u.ID] = struct{}{}
	}
	known := func(where, id string) error {
		if _, ok := users[id]; !ok {
			return fmt.Errorf("%s: unknown user %q", where, id)
		}
		return nil
	}

	slugs := make(map[string]struct{}, len(fx.Posts))
	for i, p := range fx.Posts {
		where := fmt.Sprintf("posts[%d]", i)
		if err := validation.ValidatePostSlug(p.Slug); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		if _, dup := slugs[p.Slug]; dup {
			return fmt.Errorf("%s: duplicate slug %q", where, p.Slug)
		}
		slugs[p.Slug] = struct{}{}
		if err := known(where, p.Author); err != nil {
			return err
		}
		for j, c := range p.Comments {
			cw := fmt.Sprintf("%s.comments[%d]", where, j)
			if err := known(cw, c.Author); err != nil {
				return err
			}
			for _, r := range c.Reactions {
				if err := known(cw, r.User); err != nil {
					return err
				}
			}
			for k, r := range c.Replies {
				rw := fmt.Sprintf("%s.replies[%d]", cw, k)
				if err := known(rw, r.Author); err != nil {
					return err
				}
				for _, re := range r.Reactions {
					if err := known(rw, re.User); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// ApplyFixture inserts fx in one transaction. Users that already exist are
// kept; posts whose slug already exists are skipped with their threads.
func ApplyFixture(ctx context.Context, db *gorm.DB, fx *Fixture) (Summary, error) {
	var sum Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clock := time.Now().UTC().Add(-time.Duration(len(fx.Posts)+1) * time.Hour)
		tick := func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}

		for _, u := range fx.Users {
			now := tick()
			user := &models.User{
				ExternalID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Bio: u.Bio,
				CreatedAt: now, UpdatedAt: now,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "external_id"}},
				DoNothing: true,
			}).Create(user)
			if res.Error != nil {
				return fmt.Errorf("user %s: %w", u.ID, res.Error)
			}
			sum.Users += int(res.RowsAffected)
		}

		for _, p := range fx.Posts {
			var existing int64
			if err := tx.Model(&models.Post{}).Where("slug = ?", p.Slug).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			now := tick()
			post := &models.Post{
				Title: p.Title, Description: p.Description, Slug: p.Slug,
				Content: models.RichText(richtext.Doc(p.Body...)), Tags: p.Tags,
				IsPublished: p.Published, UserID: p.Author,
				CreatedAt: now, UpdatedAt: now,
			}
			if err := tx.Create(post).Error; err != nil {
				return fmt.Errorf("post %s: %w", p.Slug, err)
			}
			sum.Posts++

			for _, c := range p.Comments {
				now := tick()
				comment := &models.Comment{PostID: post.ID, UserID: c.Author, Content: c.Content, CreatedAt: now, UpdatedAt: now}
				if err := tx.Create(comment).Error; err != nil {
					return fmt.Errorf("comment on %s: %w", p.Slug, err)
				}
				sum.Comments++
				if err := applyReactions(tx, models.TargetComment, comment.ID, c.Reactions, tick, &sum); err != nil {
					return err
				}

				for _, r := range c.Replies {
					now := tick()
					reply := &models.Reply{CommentID: comment.ID, UserID: r.Author, Content: r.Content, CreatedAt: now, UpdatedAt: now}
					if err := tx.Create(reply).Error; err != nil {
						return fmt.Errorf("reply on %s: %w", p.Slug, err)
					}
					sum.Replies++
					if err := applyReactions(tx, models.TargetReply, reply.ID, r.Reactions, tick, &sum); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	return sum, err
}

func applyReactions(tx *gorm.DB, target models.TargetType, targetID uint, reactions []FixtureReaction, tick func() time.Time, sum *Summary) error {
	for _, r := range reactions {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "user_id"}, {Name: "emoji"}},
			DoNothing: true,
		}).Create(&models.Reaction{TargetType: target, TargetID: targetID, UserID: r.User, Emoji: r.Emoji, CreatedAt: tick()})
		if res.Error != nil {
			return fmt.Errorf("reaction %s on %s %d: %w", r.Emoji, target, targetID, res.Error)
		}
		sum.Reactions += int(res.RowsAffected)
	}
	return nil
}
