// cmd/seeder/main.go
package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/moderated-board/internal/config"
	"github.com/unclebandit/moderated-board/internal/db"
	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/logger"
	"github.com/unclebandit/moderated-board/internal/repository"
	"github.com/unclebandit/moderated-board/internal/service"
)

const demoPassword = "board-demo-password"

// The seeder creates the schema, a few demo accounts and then runs the given SQL files
// (seed/messages.sql when none are given).
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := db.Migrate(conn, cfg.DBDriver); err != nil {
		log.Fatal(err)
	}

	accounts := &service.AccountService{UserRepo: &repository.UserRepository{DB: conn}, Log: log}
	demoUsers := []struct{ username, email string }{
		{"alice", "alice@example.com"},
		{"bob", ""},
	}
	for _, u := range demoUsers {
		user, err := accounts.CreateUser(u.username, u.email, demoPassword, false)
		if errors.Is(err, appErrors.ErrUsernameTaken) {
			log.WithField("username", u.username).Info("Demo user already exists")
			continue
		}
		if err != nil {
			log.Fatal(err)
		}
		log.WithField("username", user.Username).Info("Seeded demo user")
	}

	seedFiles := os.Args[1:]
	if len(seedFiles) == 0 {
		seedFiles = []string{"seed/messages.sql"}
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}

		if _, err = conn.Exec(string(content)); err != nil {
			log.Fatalf("failed to execute %s: %v", file, err)
		}
		log.WithField("file", file).Info("Seeded")
	}

	log.Info("Database seeding completed successfully!")
}
