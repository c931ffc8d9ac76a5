// Command admin provides operator utilities for Pressroom.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"pressroom/internal/bootstrap"
	"pressroom/internal/config"
	"pressroom/internal/identity"
	"pressroom/internal/notifications"
	"pressroom/internal/repository"
	"pressroom/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin token <external_id> [admin]   - Mint a development token")
	fmt.Println("  go run ./cmd/admin list-users                    - List user profiles")
	fmt.Println("  go run ./cmd/admin remove-post <post_id>         - Delete a post and its thread")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "token":
		if len(os.Args) < 3 {
			usage()
		}
		mintToken(cfg, os.Args[2], len(os.Args) > 3 && os.Args[3] == "admin")
	case "list-users":
		listUsers(cfg)
	case "remove-post":
		if len(os.Args) < 3 {
			usage()
		}
		id, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil || id == 0 {
			log.Fatalf("Invalid post ID %q", os.Args[2])
		}
		removePost(cfg, uint(id))
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func mintToken(cfg *config.Config, externalID string, admin bool) {
	role := identity.RoleMember
	if admin {
		role = identity.RoleAdmin
	}
	resolver := identity.NewResolver(cfg.IdentitySecret, cfg.IdentityIssuer, cfg.IdentityAudience)
	token, err := resolver.SignToken(identity.TokenParams{
		Subject: externalID,
		Name:    externalID,
		Role:    role,
		TTL:     24 * time.Hour,
	})
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

func services(cfg *config.Config) (repository.Store, *notifications.Feed) {
	db, rdb, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	return repository.NewStore(db), notifications.NewFeed(rdb)
}

func listUsers(cfg *config.Config) {
	store, _ := services(cfg)
	users, err := service.NewUserService(store).List(context.Background(), identity.Admin("cli|admin"))
	if err != nil {
		log.Fatalf("Failed to fetch users: %v", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found")
		return
	}

	fmt.Println("─────────────────────────────────────")
	for _, u := range users {
		fmt.Printf("%s | %s | %s\n", u.ExternalID, u.Name, u.CreatedAt.Format(time.RFC3339))
	}
	fmt.Println("─────────────────────────────────────")
}

func removePost(cfg *config.Config, id uint) {
	store, feed := services(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// A started feed publishes through Redis so live viewers on every
	// server instance are told the post is gone.
	if err := feed.Start(ctx); err != nil {
		log.Printf("Thread feed unavailable, viewers will not be notified: %v", err)
	}

	posts := service.NewPostService(store, feed, nil, nil)
	report, err := posts.Remove(ctx, identity.Admin("cli|admin"), id)
	if err != nil {
		log.Fatalf("Failed to remove post %d: %v", id, err)
	}
	fmt.Printf("Removed post %d: %d comments, %d replies, %d reactions\n",
		id, report.Comments, report.Replies, report.Reactions)
}
