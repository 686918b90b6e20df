package database

import _ "embed"

// Schema is the journal schema as produced by running every migration.
// Tests apply it directly to skip the migration machinery.
//
//go:embed schema.sql
var Schema string
