// Package db provides embedded database schemas and seed data.
package db

import _ "embed"

// Schema contains the PostgreSQL DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SQLiteSchema contains the SQLite DDL statements for all application tables.
//
//go:embed sqlite/001_schema.sql
var SQLiteSchema string

// Products is the product feed bundled for local runs and tests.
//
//go:embed seed/products.json
var Products []byte
