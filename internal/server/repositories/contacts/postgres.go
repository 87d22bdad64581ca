package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contacthub/contacthub/internal/common"
	"github.com/contacthub/contacthub/internal/dbx"
	"github.com/contacthub/contacthub/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contactColumns = `id, user_id, name, surname, email, phone, birthday, COALESCE(notes, '')`

func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query :=
		`INSERT INTO contacts (user_id, name, surname, email, phone, birthday, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		contact.UserID, contact.Name, contact.Surname, contact.Email,
		contact.Phone, contact.Birthday, contact.Notes).Scan(&contact.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + `
		 FROM contacts
		 WHERE user_id = $1 AND id = $2
		 `

	contact := &models.Contact{}
	err := r.db.QueryRowContext(ctx, query, userID, id).Scan(
		&contact.ID, &contact.UserID, &contact.Name, &contact.Surname,
		&contact.Email, &contact.Phone, &contact.Birthday, &contact.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

// List returns the user's contacts ordered by surname/name. A non-empty
// search term filters on name, surname and email, case-insensitively.
func (r *PostgresRepository) List(ctx context.Context, userID, search string, limit, offset int) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + `
		 FROM contacts
		 WHERE user_id = $1
		   AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR surname ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		 ORDER BY surname, name
		 LIMIT $3 OFFSET $4
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanContacts(rows)
}

// Update rewrites all mutable fields of a contact owned by the user.
func (r *PostgresRepository) Update(ctx context.Context, contact *models.Contact) error {
	query :=
		`UPDATE contacts
		 SET name = $3, surname = $4, email = $5, phone = $6, birthday = $7, notes = $8
		 WHERE user_id = $1 AND id = $2
		 `

	res, err := r.db.ExecContext(ctx, query,
		contact.UserID, contact.ID, contact.Name, contact.Surname,
		contact.Email, contact.Phone, contact.Birthday, contact.Notes)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	query :=
		`DELETE FROM contacts
		 WHERE user_id = $1 AND id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

// UpcomingBirthdays returns contacts whose birthday falls within the next
// daygap days, by day of year. When the window crosses the year boundary the
// filter wraps around instead of comparing a reversed range.
func (r *PostgresRepository) UpcomingBirthdays(ctx context.Context, userID string, daygap, limit, offset int) ([]*models.Contact, error) {
	today := time.Now()
	startDay := today.YearDay()
	endDay := today.AddDate(0, 0, daygap).YearDay()

	var query string
	if endDay < startDay {
		query = `SELECT ` + contactColumns + `
		 FROM contacts
		 WHERE user_id = $1
		   AND (EXTRACT(doy FROM birthday) >= $2 OR EXTRACT(doy FROM birthday) <= $3)
		 ORDER BY EXTRACT(doy FROM birthday)
		 LIMIT $4 OFFSET $5
		 `
	} else {
		query = `SELECT ` + contactColumns + `
		 FROM contacts
		 WHERE user_id = $1
		   AND EXTRACT(doy FROM birthday) BETWEEN $2 AND $3
		 ORDER BY EXTRACT(doy FROM birthday)
		 LIMIT $4 OFFSET $5
		 `
	}

	rows, err := r.db.QueryContext(ctx, query, userID, startDay, endDay, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanContacts(rows)
}

func scanContacts(rows *sql.Rows) ([]*models.Contact, error) {
	var result []*models.Contact
	for rows.Next() {
		contact := &models.Contact{}
		if err := rows.Scan(&contact.ID, &contact.UserID, &contact.Name, &contact.Surname,
			&contact.Email, &contact.Phone, &contact.Birthday, &contact.Notes); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
