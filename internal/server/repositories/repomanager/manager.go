package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sampleapp/internal/dbx"
	"github.com/dmitrijs2005/sampleapp/internal/server/repositories/microposts"
	"github.com/dmitrijs2005/sampleapp/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Microposts(db dbx.DBTX) microposts.Repository
}
