package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/coursesell/internal/dbx"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/courses"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/stats"
	"github.com/dmitrijs2005/coursesell/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Stats(db dbx.DBTX) stats.Repository
	Courses(db dbx.DBTX) courses.Repository
}
