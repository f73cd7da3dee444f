// Command main runs the database seeder for Warbler.
package main

import (
	"context"
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 50, "Number of users to create")
	perUser := flag.Int("messages", 10, "Number of messages per user")
	maxFollows := flag.Int("follows", 15, "Maximum number of users each user follows")
	maxLikes := flag.Int("likes", 20, "Maximum number of likes per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build the data without writing it")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d messages each, clean=%v\n", *numUsers, *perUser, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db, seed.Options{
		NumUsers:        *numUsers,
		MessagesPerUser: *perUser,
		MaxFollows:      *maxFollows,
		MaxLikes:        *maxLikes,
		BcryptCost:      cfg.BcryptCost,
		ShouldClean:     *shouldClean,
		DryRun:          *dryRun,
	})
	if err != nil {
		log.Fatalf("❌ Seeder setup failed: %v", err)
	}

	summary, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d messages, %d follows, %d likes.",
		summary.Users, summary.Messages, summary.Follows, summary.Likes)
	log.Printf("📧 All seeded users have the password: %s (try logging in as \"demo\")", seed.DefaultPassword)
}
