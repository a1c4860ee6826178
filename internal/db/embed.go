package db

import "embed"

// EmbedMigrations holds the session store schema migrations compiled into
// the binary, so deployments never need migration files on disk.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
