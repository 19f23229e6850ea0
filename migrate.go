package main

import (
	"flag"
	"os"

	"github.com/dhvani-data/annotation.report/internal/db"
)

func runMigrate() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	fs.Parse(os.Args[1:])

	db.RunMigrateCommand(fs.Args(), *dbFile)
}
