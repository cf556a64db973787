package postgres

import "embed"

// Migrations holds the schema migrations, applied at startup with
// pgutil.RunMigrationsFS(dsn, Migrations, MigrationsDir).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the files.
const MigrationsDir = "migrations"
