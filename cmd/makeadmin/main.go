// Command makeadmin grants or revokes the admin role of a registered user.
//
//	makeadmin -email ops@example.com
//	makeadmin -email ops@example.com -revoke
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kislikjeka/agrovest/internal/infra/postgres"
	"github.com/kislikjeka/agrovest/internal/platform/user"
	"github.com/kislikjeka/agrovest/internal/platform/wallet"
	"github.com/kislikjeka/agrovest/pkg/config"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

func main() {
	email := flag.String("email", "", "email of the user to change")
	revoke := flag.Bool("revoke", false, "demote the user back to a regular investor")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: makeadmin -email <address> [-revoke]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewDefault(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Role changes never touch money, so no deletion guard is wired
	users := user.NewService(
		postgres.NewUserRepository(db.Pool),
		postgres.NewTxManager(db.Pool),
		wallet.NewService(postgres.NewWalletRepository(db.Pool)),
		nil,
		log,
	)

	role := user.RoleAdmin
	if *revoke {
		role = user.RoleUser
	}

	u, err := users.SetRole(ctx, *email, role)
	if err != nil {
		log.Error("Failed to change role", "email", *email, "error", err)
		os.Exit(1)
	}

	log.Info("Role updated", "user_id", u.ID, "email", u.Email, "role", u.Role)
}
