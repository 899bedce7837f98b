// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx stdlib driver. Schema changes ship as embedded
// goose migrations.
package postgres
