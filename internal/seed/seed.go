package seed

import (
	"context"
	"fmt"
	"log/slog"

	"pressroom/internal/middleware"
	"pressroom/internal/models"

	"gorm.io/gorm"
)

// AdminExternalID owns every seeded post.
const AdminExternalID = "seed|admin"

// Options configuration for the seeder
type Options struct {
	Users             int
	Posts             int
	CommentsPerPost   int
	RepliesPerComment int
	// ReactionsPerTarget is the upper bound of reactions per comment or reply.
	ReactionsPerTarget int
	MaxDays            int
	RandSeed           int64
	DryRun             bool
	Clean              bool
}

// DefaultOptions is a small demo data set.
func DefaultOptions() Options {
	return Options{
		Users:              12,
		Posts:              8,
		CommentsPerPost:    6,
		RepliesPerComment:  3,
		ReactionsPerTarget: 4,
		MaxDays:            90,
	}
}

// Summary counts what a seeding run created.
type Summary struct {
	Users     int
	Posts     int
	Comments  int
	Replies   int
	Reactions int
}

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Run seeds users, posts and their threads.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	log := middleware.Logger
	log.InfoContext(ctx, "seeding database",
		slog.Int("users", s.opts.Users),
		slog.Int("posts", s.opts.Posts),
		slog.Bool("dry_run", s.opts.DryRun),
	)

	if s.opts.Clean && !s.opts.DryRun {
		if err := ClearData(s.db.WithContext(ctx)); err != nil {
			return Summary{}, fmt.Errorf("clear data: %w", err)
		}
	}

	var sum Summary
	admin, err := s.factory.CreateUser(func(u *models.User) {
		u.ExternalID = AdminExternalID
		u.Name = "Pressroom Admin"
	})
	if err != nil {
		return sum, fmt.Errorf("create admin: %w", err)
	}
	users := []*models.User{admin}
	for i := 0; i < s.opts.Users; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	for i := 0; i < s.opts.Posts; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		post, err := s.factory.CreatePost(admin)
		if err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++
		if err := s.seedThread(post, users, &sum); err != nil {
			return sum, err
		}
	}

	log.InfoContext(ctx, "seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("replies", sum.Replies),
		slog.Int("reactions", sum.Reactions),
	)
	return sum, nil
}

func (s *Seeder) seedThread(post *models.Post, users []*models.User, sum *Summary) error {
	f := s.factory
	for c := 0; c < s.opts.CommentsPerPost; c++ {
		comment, err := f.CreateComment(pick(f, users), post)
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		sum.Comments++
		n, err := s.react(users, models.TargetComment, comment.ID)
		if err != nil {
			return err
		}
		sum.Reactions += n

		replies := f.faker.Number(0, s.opts.RepliesPerComment)
		for r := 0; r < replies; r++ {
			reply, err := f.CreateReply(pick(f, users), comment)
			if err != nil {
				return fmt.Errorf("create reply: %w", err)
			}
			sum.Replies++
			n, err := s.react(users, models.TargetReply, reply.ID)
			if err != nil {
				return err
			}
			sum.Reactions += n
		}
	}
	return nil
}

func (s *Seeder) react(users []*models.User, target models.TargetType, targetID uint) (int, error) {
	if s.opts.ReactionsPerTarget <= 0 {
		return 0, nil
	}
	f := s.factory
	created := 0
	attempts := f.faker.Number(0, s.opts.ReactionsPerTarget)
	for i := 0; i < attempts; i++ {
		ok, err := f.CreateReaction(pick(f, users), target, targetID, pick(f, models.EmojiPalette))
		if err != nil {
			return created, fmt.Errorf("create reaction: %w", err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// ClearData deletes every content row, children first.
func ClearData(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	return db.Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []interface{}{&models.Reaction{}, &models.Reply{}, &models.Comment{}, &models.Post{}, &models.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
