// Command admin creates a pre-verified administrator account directly in the
// database, for bootstrapping a fresh deployment.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/contacthub/contacthub/internal/common"
	"github.com/contacthub/contacthub/internal/dbx"
	"github.com/contacthub/contacthub/internal/server/auth"
	"github.com/contacthub/contacthub/internal/server/config"
	"github.com/contacthub/contacthub/internal/server/models"
	"github.com/contacthub/contacthub/internal/server/repositories/repomanager"
)

func main() {
	cfg := config.LoadConfig()

	reader := bufio.NewReader(os.Stdin)

	username, err := prompt(reader, "Admin username")
	if err != nil {
		log.Fatalf("%v", err)
	}
	email, err := prompt(reader, "Admin email")
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println("Password")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println()

	if err := createAdmin(context.Background(), cfg, username, email, password); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println("Success!")
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Println(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func createAdmin(ctx context.Context, cfg *config.Config, username, email string, password []byte) error {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	hash, err := auth.HashPassword(string(password))
	common.WipeByteArray(password)
	if err != nil {
		return err
	}

	// admins skip email confirmation
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := rm.Users(tx)
		u, err := repo.Create(ctx, &models.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		})
		if err != nil {
			return err
		}
		return repo.SetVerified(ctx, u.ID)
	})
}
