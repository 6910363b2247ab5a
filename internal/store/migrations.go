package store

import "embed"

//go:embed migrations/postgres/*.sql migrations/cassandra/*.cql
var migrationsFS embed.FS
