// Command seed populates the database with demo content.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"pressroom/internal/config"
	"pressroom/internal/database"
	"pressroom/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	replies := flag.Int("replies", defaults.RepliesPerComment, "Upper bound of replies per comment")
	reactions := flag.Int("reactions", defaults.ReactionsPerTarget, "Upper bound of reactions per comment or reply")
	randSeed := flag.Int64("rand-seed", 0, "Random seed; 0 picks one")
	shouldClean := flag.Bool("clean", false, "Delete existing content before seeding")
	dryRun := flag.Bool("dry-run", false, "Build data without writing it")
	fixture := flag.String("fixture", "", "Apply a YAML fixture instead of generated data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	ctx := context.Background()

	if *fixture != "" {
		f, err := os.Open(*fixture)
		if err != nil {
			log.Fatalf("Failed to open fixture: %v", err)
		}
		defer func() { _ = f.Close() }()

		fx, err := seed.LoadFixture(f)
		if err != nil {
			log.Fatalf("Invalid fixture: %v", err)
		}
		sum, err := seed.ApplyFixture(ctx, db, fx)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
		log.Printf("fixture applied: %+v", sum)
		return
	}

	opts := defaults
	opts.Users = *numUsers
	opts.Posts = *numPosts
	opts.CommentsPerPost = *comments
	opts.RepliesPerComment = *replies
	opts.ReactionsPerTarget = *reactions
	opts.RandSeed = *randSeed
	opts.Clean = *shouldClean
	opts.DryRun = *dryRun

	sum, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("seeded: %+v", sum)
}
