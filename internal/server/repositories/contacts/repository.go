// Package contacts provides a PostgreSQL-backed repository for address-book
// entries. Every operation is scoped to the owning user.
package contacts

import (
	"context"

	"github.com/contacthub/contacthub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	GetByID(ctx context.Context, userID, id string) (*models.Contact, error)
	List(ctx context.Context, userID, search string, limit, offset int) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, userID, id string) error
	UpcomingBirthdays(ctx context.Context, userID string, daygap, limit, offset int) ([]*models.Contact, error)
}
