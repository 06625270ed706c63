// Package db embeds the PostgreSQL schema for the products, orders and
// order_line_items tables.
package db

import _ "embed"

// Schema contains idempotent DDL for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string
