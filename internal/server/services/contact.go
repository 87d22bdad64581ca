package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/contacthub/contacthub/internal/common"
	"github.com/contacthub/contacthub/internal/server/models"
	"github.com/contacthub/contacthub/internal/server/repositories/repomanager"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// birthdayLookahead matches the "upcoming birthdays" window in days.
	birthdayLookahead = 7
)

// ContactService manages a user's address book. Every operation is scoped to
// the calling user; a contact owned by someone else behaves exactly like a
// missing one.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewContactService constructs a ContactService over the given database.
func NewContactService(db *sql.DB, m repomanager.RepositoryManager) *ContactService {
	return &ContactService{db: db, repomanager: m}
}

// Create stores a new contact for userID and returns it with its assigned ID.
func (s *ContactService) Create(ctx context.Context, userID string, contact *models.Contact) (*models.Contact, error) {
	contact.UserID = userID
	c, err := s.repomanager.Contacts(s.db).Create(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("error creating contact: %w", err)
	}
	return c, nil
}

// Get returns one of userID's contacts, or common.ErrorNotFound.
func (s *ContactService) Get(ctx context.Context, userID, id string) (*models.Contact, error) {
	c, err := s.repomanager.Contacts(s.db).GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return c, nil
}

// List returns a page of userID's contacts. A non-empty search narrows the
// page to contacts whose name, surname, or email contains the term.
func (s *ContactService) List(ctx context.Context, userID, search string, limit, offset int) ([]*models.Contact, error) {
	limit, offset = clampPage(limit, offset)
	items, err := s.repomanager.Contacts(s.db).List(ctx, userID, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing contacts: %w", err)
	}
	return items, nil
}

// Update overwrites all fields of one of userID's contacts.
func (s *ContactService) Update(ctx context.Context, userID string, contact *models.Contact) error {
	contact.UserID = userID
	if err := s.repomanager.Contacts(s.db).Update(ctx, contact); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

// Delete removes one of userID's contacts.
func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repomanager.Contacts(s.db).Delete(ctx, userID, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	return nil
}

// UpcomingBirthdays returns contacts whose birthday falls within the next
// week, including windows that wrap past New Year.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, userID string, limit, offset int) ([]*models.Contact, error) {
	limit, offset = clampPage(limit, offset)
	items, err := s.repomanager.Contacts(s.db).UpcomingBirthdays(ctx, userID, birthdayLookahead, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing upcoming birthdays: %w", err)
	}
	return items, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
