// Package migrations содержит встроенные SQL миграции базы данных.
package migrations

import "embed"

// PostgresMigrations встроенные миграции PostgreSQL в формате goose
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
