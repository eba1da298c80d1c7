// Package main provides account administration for Catalogo: creating
// users, listing them, deleting them and resetting two-factor auth.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalogo/internal/cache"
	"catalogo/internal/config"
	"catalogo/internal/database"
	"catalogo/internal/session"
	"catalogo/internal/store"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password (min 8 characters)")
	name := flag.String("name", "", "display name")
	staff := flag.Bool("staff", false, "grant staff rights (bulk import)")
	list := flag.Bool("list", false, "list existing accounts and exit")
	del := flag.Bool("delete", false, "delete the account with -email")
	reset2FA := flag.Bool("reset-2fa", false, "disable two-factor auth for -email")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("load configuration", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		fail("connect to database", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		fail("run migrations", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := store.NewUserStore(db)

	if *list {
		all, err := users.List(ctx)
		if err != nil {
			fail("list users", err)
		}
		for _, u := range all {
			role := "editor"
			if u.IsStaff {
				role = "staff"
			}
			fmt.Printf("%s\t%s\t%s\tactive=%t\t2fa=%t\n", u.ID, u.Email, role, u.IsActive, u.TOTPEnabled)
		}
		return
	}

	addr := strings.TrimSpace(*email)
	if addr == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *del || *reset2FA {
		u, err := users.FindByEmail(ctx, addr)
		if err != nil {
			fail("find user", err)
		}
		if u == nil {
			fail("find user", fmt.Errorf("no account for %s", addr))
		}
		// Live refresh tokens die with the account or its second factor.
		if err := revokeSessions(ctx, cfg, u.ID); err != nil {
			slog.Warn("could not revoke refresh tokens", "email", u.Email, "error", err)
		}
		if *del {
			if err := users.Delete(ctx, u.ID); err != nil {
				fail("delete user", err)
			}
			slog.Info("user deleted", "email", u.Email)
			return
		}
		if err := users.ResetTOTP(ctx, u.ID); err != nil {
			fail("reset 2fa", err)
		}
		slog.Info("two-factor auth reset", "email", u.Email)
		return
	}

	if len(*password) < 8 {
		fail("create user", fmt.Errorf("password must be at least 8 characters"))
	}
	displayName := strings.TrimSpace(*name)
	if displayName == "" {
		displayName = addr
	}

	u, err := users.Create(ctx, addr, *password, displayName, *staff)
	if err != nil {
		fail("create user", err)
	}
	slog.Info("user created", "id", u.ID, "email", u.Email, "staff", u.IsStaff)
}

func revokeSessions(ctx context.Context, cfg *config.Config, userID uuid.UUID) error {
	client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer client.Close()
	return session.NewStore(client).RevokeUser(ctx, userID)
}

func fail(step string, err error) {
	slog.Error("createuser failed", "step", step, "error", err)
	os.Exit(1)
}
