// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL for the slot table backing the postgres cart store.
//
//go:embed migrations/001_schema.sql
var Schema string
