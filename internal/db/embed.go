package db

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode selects the on-disk migrations directory instead of the
// embedded copy, so migration files can be edited without rebuilding.
var DevMode = os.Getenv("ANNOTATION_REPORT_DEV") == "1"

// getMigrationsFS returns the migrations filesystem rooted at the
// directory containing the .sql files.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		return os.DirFS("internal/db/migrations"), nil
	}
	return fs.Sub(migrationsFS, "migrations")
}
