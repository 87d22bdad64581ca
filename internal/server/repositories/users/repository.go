// Package users provides the user directory: lookup and mutation of user
// records behind a narrow repository interface.
package users

import (
	"context"

	"github.com/contacthub/contacthub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetVerified(ctx context.Context, id string) error
	UpdateAvatar(ctx context.Context, id string, avatarURL string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
