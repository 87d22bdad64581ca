// Package repomanager wires repository constructors to a concrete database
// and exposes a schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/contacthub/contacthub/internal/dbx"
	"github.com/contacthub/contacthub/internal/server/repositories/contacts"
	"github.com/contacthub/contacthub/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Contacts(db dbx.DBTX) contacts.Repository
}
